// Package headings checks the heading structure of a markdown body.
// Validation is advisory: the editing API reports issues but never
// blocks a save or publish on them.
package headings

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	RuleNoH1        = "no-h1"
	RuleMultipleH1  = "multiple-h1"
	RuleHeadingSkip = "heading-skip"
	RuleEmpty       = "empty-heading"
)

// Issue is one finding. Line is 1-based; 0 means the heading carries no
// source position (an empty ATX marker).
type Issue struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Line     int      `json:"line,omitempty"`
	Heading  string   `json:"heading,omitempty"`
	Message  string   `json:"message"`
}

// Report is the full validation result for one body.
type Report struct {
	Issues []Issue `json:"issues"`
}

func (r Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r Report) Warnings() int { return len(r.Issues) - r.Errors() }

// OK reports whether the body has no error-severity issues.
func (r Report) OK() bool { return r.Errors() == 0 }

// Validator parses markdown to an AST and walks the heading nodes.
// Parsing instead of scanning for "#" keeps headings inside code fences
// and blockquoted text out of the analysis.
type Validator struct {
	md goldmark.Markdown
}

func New() *Validator {
	return &Validator{md: goldmark.New()}
}

// Validate checks one markdown body. Rules:
//
//	no-h1        error    the document has no level-1 heading
//	multiple-h1  error    the document has more than one level-1 heading
//	heading-skip error    a heading is more than one level deeper than
//	                      the previous heading; going shallower is fine
//	empty-heading warning a heading marker with no text
func (v *Validator) Validate(body []byte) Report {
	var rep Report

	doc := v.md.Parser().Parse(text.NewReader(body))

	h1s := 0
	prev := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		line := lineOf(h, body)
		title := headingText(h, body)

		if h.Level == 1 {
			h1s++
			if h1s > 1 {
				rep.Issues = append(rep.Issues, Issue{
					Severity: SeverityError,
					Rule:     RuleMultipleH1,
					Line:     line,
					Heading:  title,
					Message:  "more than one top-level heading",
				})
			}
		}
		if prev > 0 && h.Level > prev+1 {
			rep.Issues = append(rep.Issues, Issue{
				Severity: SeverityError,
				Rule:     RuleHeadingSkip,
				Line:     line,
				Heading:  title,
				Message:  "heading level skips from " + levelName(prev) + " to " + levelName(h.Level),
			})
		}
		if title == "" {
			rep.Issues = append(rep.Issues, Issue{
				Severity: SeverityWarning,
				Rule:     RuleEmpty,
				Line:     line,
				Message:  "heading has no text",
			})
		}
		prev = h.Level
		return ast.WalkSkipChildren, nil
	})

	if h1s == 0 {
		rep.Issues = append(rep.Issues, Issue{
			Severity: SeverityError,
			Rule:     RuleNoH1,
			Message:  "document has no top-level heading",
		})
	}
	return rep
}

func lineOf(n ast.Node, src []byte) int {
	lines := n.Lines()
	if lines.Len() == 0 {
		return 0
	}
	return 1 + bytes.Count(src[:lines.At(0).Start], []byte("\n"))
}

func headingText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func levelName(level int) string {
	return "h" + string(rune('0'+level))
}
