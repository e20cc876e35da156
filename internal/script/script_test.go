package script

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\napp: app_1\nactivePage: home\n---\n# setup\nadd page Pricing\n\n  rename page Pricing to Plans  \n")
	s, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Header.App != "app_1" || s.Header.ActivePage != "home" {
		t.Errorf("header = %+v", s.Header)
	}
	if len(s.Lines) != 2 {
		t.Fatalf("lines = %+v, want 2", s.Lines)
	}
	if s.Lines[0] != (Line{Number: 6, Text: "add page Pricing"}) {
		t.Errorf("line 0 = %+v", s.Lines[0])
	}
	if s.Lines[1] != (Line{Number: 8, Text: "rename page Pricing to Plans"}) {
		t.Errorf("line 1 = %+v", s.Lines[1])
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	s, err := Parse([]byte("add page About\ndelete page About"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Header != (Header{}) {
		t.Errorf("expected empty header, got %+v", s.Header)
	}
	got := s.Texts()
	if len(got) != 2 || got[0] != "add page About" || got[1] != "delete page About" {
		t.Errorf("texts = %v", got)
	}
	if s.Lines[1].Number != 2 {
		t.Errorf("line number = %d, want 2", s.Lines[1].Number)
	}
}

func TestParse_NameOnly(t *testing.T) {
	s, err := Parse([]byte("---\nname: Landing Demo\n---\nadd page Pricing\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Header.Name != "Landing Demo" || s.Header.App != "" {
		t.Errorf("header = %+v", s.Header)
	}
}

func TestParse_EmptyFrontmatter(t *testing.T) {
	s, err := Parse([]byte("---\n---\nadd page X\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Lines) != 1 {
		t.Errorf("lines = %+v", s.Lines)
	}
}

func TestParse_UnknownHeaderField(t *testing.T) {
	if _, err := Parse([]byte("---\napp: a\ncolour: red\n---\nadd page X\n")); err == nil {
		t.Error("expected error for unknown frontmatter field")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nadd page X\n")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	if _, err := Parse([]byte("---\napp: a\nadd page X\n")); err == nil {
		t.Error("expected error for unclosed frontmatter")
	}
}

func TestParse_OnlyComments(t *testing.T) {
	s, err := Parse([]byte("# nothing\n\n   # here\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Lines) != 0 {
		t.Errorf("lines = %+v", s.Lines)
	}
}
