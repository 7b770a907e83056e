// Package docstore reads and writes markdown documents with a yaml
// frontmatter block under the content root. Fetch and save round-trip
// the frontmatter losslessly; save is atomic so a reader never sees a
// torn file.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/pagedesk/pagedesk/internal/address"
	"github.com/pagedesk/pagedesk/internal/log"
	"github.com/pagedesk/pagedesk/internal/xerrors"
)

var (
	// ErrNotFound marks an address whose file does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrParse marks a file whose frontmatter block cannot be parsed.
	ErrParse = errors.New("document parse failed")
	// ErrWrite marks a failed or incomplete save.
	ErrWrite = errors.New("document write failed")
)

// yamlFormat restricts frontmatter detection to the yaml "---" fence.
// The write path only ever emits yaml, so accepting other fences on read
// would strand documents we cannot save back.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Document is one content file split into its metadata block and
// markdown body.
type Document struct {
	Address address.Address `json:"address"`
	Meta    *Frontmatter    `json:"frontmatter"`
	Body    string          `json:"body"`
}

// Entry is one row of a content listing.
type Entry struct {
	Address address.Address `json:"address"`
	Title   string          `json:"title,omitempty"`
}

// Store is the file-backed document store. All paths go through the
// resolver; Store never touches a file outside the content root.
type Store struct {
	resolver *address.Resolver
	log      log.Logger
}

func New(resolver *address.Resolver, l log.Logger) *Store {
	if l == nil {
		l = log.Nop()
	}
	return &Store{resolver: resolver, log: l.With("component", "docstore")}
}

// Fetch loads and splits the document at a. A file without a
// frontmatter fence yields an empty metadata block, not an error.
func (s *Store) Fetch(ctx context.Context, a address.Address) (*Document, error) {
	path, err := s.resolver.Resolve(a)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, xerrors.Wrapf(ErrNotFound, "%s", a)
		}
		return nil, xerrors.Wrapf(err, "read %s", a)
	}

	doc, err := split(raw)
	if err != nil {
		return nil, xerrors.Wrapf(errors.Join(ErrParse, err), "parse %s", a)
	}
	doc.Address = a
	return doc, nil
}

// Save writes the document atomically: temp file in the target
// directory, fsync, rename over the destination. The parent content
// type directory is created on first save.
func (s *Store) Save(ctx context.Context, doc *Document) error {
	path, err := s.resolver.Resolve(doc.Address)
	if err != nil {
		return err
	}

	out, err := render(doc)
	if err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "render %s", doc.Address)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "mkdir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "create temp for %s", doc.Address)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "write %s", doc.Address)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "sync %s", doc.Address)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "close %s", doc.Address)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "chmod %s", doc.Address)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return xerrors.Wrapf(errors.Join(ErrWrite, err), "rename into place %s", doc.Address)
	}

	s.log.Debug(ctx, "document saved", "address", doc.Address.String(), "bytes", len(out))
	return nil
}

// List walks the allowed content type directories and returns every
// addressable document, sorted by address. Titles come from the
// frontmatter when the file parses; a broken file still lists, titleless.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	for _, ctype := range s.resolver.Types() {
		dir := filepath.Join(s.resolver.Root(), ctype)
		files, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, xerrors.Wrapf(err, "list %s", ctype)
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), address.Ext) {
				continue
			}
			a, err := s.resolver.FromPath(filepath.Join(dir, f.Name()))
			if err != nil {
				continue
			}
			e := Entry{Address: a}
			if doc, err := s.Fetch(ctx, a); err == nil {
				e.Title, _ = doc.Meta.Get("title")
			}
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Address.String() < entries[j].Address.String()
	})
	return entries, nil
}

// RelPath returns the document's path relative to the repository root
// in slash form, for staging.
func (s *Store) RelPath(repoRoot string, a address.Address) (string, error) {
	path, err := s.resolver.Resolve(a)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(repoRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", xerrors.Newf("document %s is outside repository %s", a, repoRoot)
	}
	return filepath.ToSlash(rel), nil
}

func split(raw []byte) (*Document, error) {
	var node yaml.Node
	body, err := frontmatter.Parse(bytes.NewReader(raw), &node, yamlFormat)
	if err != nil {
		return nil, err
	}

	doc := &Document{Meta: NewFrontmatter(), Body: string(body)}
	m := &node
	if m.Kind == yaml.DocumentNode && len(m.Content) == 1 {
		m = m.Content[0]
	}
	switch m.Kind {
	case 0:
		// no frontmatter fence in the file
	case yaml.MappingNode:
		doc.Meta = &Frontmatter{node: m}
		// The blank line after the closing fence is on-disk layout, not
		// document content; render re-emits it on save.
		doc.Body = strings.TrimPrefix(doc.Body, "\n")
	default:
		return nil, xerrors.New("frontmatter is not a mapping")
	}
	return doc, nil
}

func render(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if doc.Meta.Len() > 0 {
		meta, err := doc.Meta.marshalYAML()
		if err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
		buf.Write(meta)
		buf.WriteString("---\n\n")
	}
	buf.WriteString(doc.Body)
	if doc.Body != "" && !strings.HasSuffix(doc.Body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
