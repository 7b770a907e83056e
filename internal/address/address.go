// Package address maps logical content addresses (content-type + slug)
// to files under the content root and back. It is the security boundary
// that keeps the editing API inside the content tree, so resolution is
// pure string work: no symlink following, no cleverness.
package address

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/pagedesk/pagedesk/internal/xerrors"
)

// ErrInvalid marks an address that cannot name a content file: unknown
// type, traversal segments, absolute markers, or anything that would
// resolve outside the content root.
var ErrInvalid = errors.New("invalid content address")

// Ext is the on-disk extension for every content document.
const Ext = ".md"

// Address names one document: a content-type directory and a slug
// unique within it. Immutable; used only for lookup.
type Address struct {
	Type string `json:"type"`
	Slug string `json:"slug"`
}

func (a Address) String() string { return a.Type + "/" + a.Slug }

// Resolver translates addresses to file paths under a fixed content root.
type Resolver struct {
	root  string
	types map[string]struct{}
	order []string
}

// NewResolver builds a resolver for root and the allowed content types.
// root is cleaned but not required to exist yet; callers that care probe
// it separately (readiness checks do).
func NewResolver(root string, types []string) (*Resolver, error) {
	if root == "" {
		return nil, xerrors.New("content root is required")
	}
	if len(types) == 0 {
		return nil, xerrors.New("at least one content type is required")
	}
	r := &Resolver{
		root:  filepath.Clean(root),
		types: make(map[string]struct{}, len(types)),
	}
	for _, t := range types {
		if !validSegment(t) {
			return nil, xerrors.Newf("content type %q is not a valid directory name", t)
		}
		if _, dup := r.types[t]; dup {
			continue
		}
		r.types[t] = struct{}{}
		r.order = append(r.order, t)
	}
	return r, nil
}

// Root returns the cleaned content root.
func (r *Resolver) Root() string { return r.root }

// Types returns the allowed content types in registration order.
func (r *Resolver) Types() []string { return append([]string(nil), r.order...) }

// Parse splits "type/slug" into an Address and validates it.
func (r *Resolver) Parse(s string) (Address, error) {
	ctype, slug, ok := strings.Cut(s, "/")
	if !ok {
		return Address{}, xerrors.Wrapf(ErrInvalid, "address %q is not type/slug", s)
	}
	a := Address{Type: ctype, Slug: slug}
	if err := r.Check(a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Check validates an address without resolving it.
func (r *Resolver) Check(a Address) error {
	if _, ok := r.types[a.Type]; !ok {
		return xerrors.Wrapf(ErrInvalid, "unknown content type %q", a.Type)
	}
	if !validSegment(a.Slug) {
		return xerrors.Wrapf(ErrInvalid, "bad slug %q", a.Slug)
	}
	return nil
}

// Resolve returns the canonical absolute-or-root-relative file path for
// a valid address. The containment check is belt and braces: validSegment
// already rejects everything that could escape, but the resolver is the
// last line before filesystem access.
func (r *Resolver) Resolve(a Address) (string, error) {
	if err := r.Check(a); err != nil {
		return "", err
	}
	p := filepath.Join(r.root, a.Type, a.Slug+Ext)
	rel, err := filepath.Rel(r.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", xerrors.Wrapf(ErrInvalid, "address %s escapes content root", a)
	}
	return p, nil
}

// FromPath is the inverse of Resolve: given a path under the content
// root (absolute or root-relative), return the Address that resolves to
// it. Round-trip property: FromPath(Resolve(a)) == a for any valid a.
func (r *Resolver) FromPath(p string) (Address, error) {
	rel := filepath.Clean(p)
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, r.root+string(filepath.Separator)) {
		var err error
		rel, err = filepath.Rel(r.root, rel)
		if err != nil {
			return Address{}, xerrors.Wrapf(ErrInvalid, "path %q not under content root", p)
		}
	}
	rel = filepath.ToSlash(rel)

	ctype, rest, ok := strings.Cut(rel, "/")
	if !ok {
		return Address{}, xerrors.Wrapf(ErrInvalid, "path %q has no content type directory", p)
	}
	slug, found := strings.CutSuffix(rest, Ext)
	if !found {
		return Address{}, xerrors.Wrapf(ErrInvalid, "path %q is not a %s file", p, Ext)
	}
	a := Address{Type: ctype, Slug: slug}
	if err := r.Check(a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// validSegment reports whether s is safe as a single path element:
// non-empty, no separators, no dot segments, no NUL, not dot-prefixed
// (dotfiles are never content).
func validSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.HasPrefix(s, ".") {
		return false
	}
	if strings.ContainsAny(s, "/\\\x00") {
		return false
	}
	return true
}
