package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pagedesk/pagedesk/internal/xerrors"
)

// Frontmatter holds a document's metadata block as a yaml mapping node
// rather than a map. Key order, unrelated fields, and comments survive a
// fetch/save round trip untouched; editing tools must never reshuffle a
// document they did not change.
type Frontmatter struct {
	node *yaml.Node
}

// NewFrontmatter returns an empty metadata block.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

func (f *Frontmatter) mapping() *yaml.Node {
	if f.node == nil {
		f.node = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	return f.node
}

// Len returns the number of top-level fields.
func (f *Frontmatter) Len() int {
	if f == nil || f.node == nil {
		return 0
	}
	return len(f.node.Content) / 2
}

// Keys returns the top-level field names in document order.
func (f *Frontmatter) Keys() []string {
	if f.Len() == 0 {
		return nil
	}
	keys := make([]string, 0, f.Len())
	for i := 0; i < len(f.node.Content); i += 2 {
		keys = append(keys, f.node.Content[i].Value)
	}
	return keys
}

// Get returns the scalar value of a top-level field.
func (f *Frontmatter) Get(key string) (string, bool) {
	if f == nil || f.node == nil {
		return "", false
	}
	for i := 0; i+1 < len(f.node.Content); i += 2 {
		if f.node.Content[i].Value == key {
			v := f.node.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return "", false
			}
			return v.Value, true
		}
	}
	return "", false
}

// Set updates a top-level field in place, or appends it when absent.
func (f *Frontmatter) Set(key, value string) {
	m := f.mapping()
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = scalarNode(value)
			return
		}
	}
	m.Content = append(m.Content, keyNode(key), scalarNode(value))
}

// marshalYAML renders the block as the document would carry it, without
// delimiters. Empty blocks render to nothing.
func (f *Frontmatter) marshalYAML() ([]byte, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.node); err != nil {
		return nil, xerrors.Wrap(err, "marshal frontmatter")
	}
	if err := enc.Close(); err != nil {
		return nil, xerrors.Wrap(err, "marshal frontmatter")
	}
	return buf.Bytes(), nil
}

// MarshalJSON emits the block as a JSON object, walking the mapping
// directly so field order is preserved (encoding/json maps would sort).
func (f *Frontmatter) MarshalJSON() ([]byte, error) {
	if f == nil || f.node == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, f.node); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds the mapping from a JSON object using the token
// stream, so the order a client submitted is the order written to disk.
func (f *Frontmatter) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	node, err := readNodeJSON(dec)
	if err != nil {
		return err
	}
	if node.Kind != yaml.MappingNode {
		return xerrors.New("frontmatter must be a JSON object")
	}
	f.node = node
	return nil
}

func writeNodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return xerrors.Wrapf(err, "decode scalar %q", n.Value)
		}
		out, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(out)
		return nil
	default:
		return xerrors.Newf("unsupported yaml node kind %d", n.Kind)
	}
}

func readNodeJSON(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, xerrors.Wrap(err, "read frontmatter json")
	}
	return nodeFromToken(dec, tok)
}

func nodeFromToken(dec *json.Decoder, tok json.Token) (*yaml.Node, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, xerrors.Wrap(err, "read frontmatter json")
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, xerrors.Newf("object key is %T, want string", keyTok)
				}
				val, err := readNodeJSON(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, keyNode(key), val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, xerrors.Wrap(err, "read frontmatter json")
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				val, err := readNodeJSON(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, xerrors.Wrap(err, "read frontmatter json")
			}
			return n, nil
		}
		return nil, xerrors.Newf("unexpected delimiter %q", t)
	case string:
		return scalarNode(t), nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(t.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: t.String()}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", t)}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	default:
		return nil, xerrors.Newf("unexpected json token %T", tok)
	}
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}

func scalarNode(value string) *yaml.Node {
	// !!str keeps ambiguous values like "true" or "2026-01-01" quoted
	// on output so they stay strings on the next parse.
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
