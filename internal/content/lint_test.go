package content_test

import (
	"strings"
	"testing"

	"github.com/p-n-ai/campus/internal/content"
)

func TestLint_ValidDocument(t *testing.T) {
	doc := `{
		"title": "Cells",
		"number": 1,
		"meta": {"version": "1.2.0"},
		"blocks": [
			{"id": "b1", "type": "threshold", "title": "Start"},
			{"id": "b2", "type": "core", "title": "Body", "activities": [
				{"id": "a1", "kind": "match_pairs", "data": {"pairs": [{"left": "a", "right": "b"}]}}
			]}
		]
	}`
	warnings, err := content.Lint([]byte(doc))
	if err != nil {
		t.Fatalf("Lint() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Lint() warnings = %v, want none", warnings)
	}
}

func TestLint_ReportsViolations(t *testing.T) {
	doc := `{"meta": {"version": "latest"}, "blocks": [{"type": "appendix", "title": "X"}]}`
	warnings, err := content.Lint([]byte(doc))
	if err != nil {
		t.Fatalf("Lint() error = %v", err)
	}
	if len(warnings) < 3 {
		t.Fatalf("Lint() warnings = %v, want at least missing id, bad type, bad version", warnings)
	}

	joined := strings.Join(warnings, "\n")
	for _, want := range []string{"blocks.0", "meta.version"} {
		if !strings.Contains(joined, want) {
			t.Errorf("warnings missing %q:\n%s", want, joined)
		}
	}
}

func TestLint_NotJSON(t *testing.T) {
	if _, err := content.Lint([]byte(`{"blocks": [`)); err == nil {
		t.Error("Lint() should fail on malformed JSON")
	}
}
