package utils

import (
	"strings"
	"testing"
)

func TestSmartParseStandardJSON(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	if _, err := SmartParse(`{"name": "overview"}`, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "overview" {
		t.Errorf("name = %q", out.Name)
	}
}

func TestSmartParseRepairsTrailingComma(t *testing.T) {
	var out struct {
		ID string `json:"id"`
	}
	if _, err := SmartParse(`{"id": "research.overview",}`, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != "research.overview" {
		t.Errorf("id = %q", out.ID)
	}
}

func TestSmartParseHJSONComments(t *testing.T) {
	input := `{
		# comment line
		grade: "B+"
	}`
	var out struct {
		Grade string `json:"grade"`
	}
	if _, err := SmartParse(input, &out); err != nil {
		t.Fatal(err)
	}
	if out.Grade != "B+" {
		t.Errorf("grade = %q", out.Grade)
	}
}

func TestCleanMarkdownStripsFences(t *testing.T) {
	input := "```markdown\n# Report\nBody text.\n```"
	got := CleanMarkdown(input)
	if got != "# Report\nBody text." {
		t.Errorf("got %q", got)
	}

	plain := "# Report\nNo fences here."
	if CleanMarkdown(plain) != plain {
		t.Error("plain markdown should pass through")
	}
}

func TestValidateMarkdown(t *testing.T) {
	if !ValidateMarkdown("# Heading\n\nSome **bold** text.") {
		t.Error("valid markdown rejected")
	}
	if !ValidateMarkdown(strings.Repeat("|", 100)) {
		t.Error("goldmark should accept degenerate input")
	}
}
