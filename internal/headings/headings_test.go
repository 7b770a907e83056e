package headings

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		rules    []string
		warnings int
	}{
		{
			name: "ordered descent is clean",
			body: "# Title\n\n## Section\n\n### Sub\n",
		},
		{
			name:  "skip from h1 to h3",
			body:  "# Title\n\n### Sub\n",
			rules: []string{RuleHeadingSkip},
		},
		{
			name: "going shallower is always fine",
			body: "# Title\n\n## A\n\n# Wait no\n",
			// second h1 is its own violation, jumping back up is not
			rules: []string{RuleMultipleH1},
		},
		{
			name:  "second document-level title is an error even with clean nesting",
			body:  "# One\n\n## A\n\n# Two\n\n## B\n",
			rules: []string{RuleMultipleH1},
		},
		{
			name: "repeated descent resets",
			body: "# Title\n\n## A\n\n### A1\n\n## B\n\n### B1\n",
		},
		{
			name:  "no headings at all",
			body:  "Just prose.\n",
			rules: []string{RuleNoH1},
		},
		{
			name:  "h2 only",
			body:  "## Section\n",
			rules: []string{RuleNoH1},
		},
		{
			name:  "two top-level headings",
			body:  "# One\n\n# Two\n",
			rules: []string{RuleMultipleH1},
		},
		{
			name:  "three top-level headings report once per extra",
			body:  "# One\n\n# Two\n\n# Three\n",
			rules: []string{RuleMultipleH1, RuleMultipleH1},
		},
		{
			name: "hash inside code fence is not a heading",
			body: "# Title\n\n```\n### not a heading\n```\n",
		},
		{
			name: "setext heading counts as h1",
			body: "Title\n=====\n\n## Section\n",
		},
		{
			name:     "empty heading warns",
			body:     "# Title\n\n##\n",
			warnings: 1,
		},
		{
			name:  "empty body",
			body:  "",
			rules: []string{RuleNoH1},
		},
	}

	v := New()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rep := v.Validate([]byte(tc.body))

			var gotRules []string
			for _, iss := range rep.Issues {
				if iss.Severity == SeverityError {
					gotRules = append(gotRules, iss.Rule)
				}
			}
			if len(gotRules) != len(tc.rules) {
				t.Fatalf("error rules = %v, want %v (report: %+v)", gotRules, tc.rules, rep.Issues)
			}
			for i := range tc.rules {
				if gotRules[i] != tc.rules[i] {
					t.Fatalf("error rules = %v, want %v", gotRules, tc.rules)
				}
			}
			if rep.Warnings() != tc.warnings {
				t.Errorf("warnings = %d, want %d (report: %+v)", rep.Warnings(), tc.warnings, rep.Issues)
			}
			if wantOK := len(tc.rules) == 0; rep.OK() != wantOK {
				t.Errorf("OK = %v, want %v", rep.OK(), wantOK)
			}
		})
	}
}

func TestValidateIssueDetail(t *testing.T) {
	rep := New().Validate([]byte("# Title\n\n### Deep\n"))
	if len(rep.Issues) != 1 {
		t.Fatalf("issues = %+v", rep.Issues)
	}
	iss := rep.Issues[0]
	if iss.Rule != RuleHeadingSkip || iss.Severity != SeverityError {
		t.Errorf("issue = %+v", iss)
	}
	if iss.Line != 3 {
		t.Errorf("line = %d, want 3", iss.Line)
	}
	if iss.Heading != "Deep" {
		t.Errorf("heading = %q", iss.Heading)
	}
	if iss.Message != "heading level skips from h1 to h3" {
		t.Errorf("message = %q", iss.Message)
	}
}
