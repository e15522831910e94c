package scan

import (
	"testing"

	"github.com/partario/mustache/internal/ast"
	"github.com/partario/mustache/internal/delim"
)

func newScanner(t *testing.T, src string) *Scanner {
	t.Helper()
	s := NewFromString([]byte(src))
	if err := s.SetDelimiters(delim.Default); err != nil {
		t.Fatalf("SetDelimiters: %v", err)
	}
	return s
}

func drain(t *testing.T, s *Scanner) []*TextPart {
	t.Helper()
	var parts []*TextPart
	for {
		p, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if p == nil {
			return parts
		}
		parts = append(parts, p)
	}
}

func TestNextBasicTextAndTag(t *testing.T) {
	s := newScanner(t, "hello {{name}} world")
	parts := drain(t, s)

	want := []struct {
		typ     ast.PartType
		content string
	}{
		{ast.StaticText, "hello "},
		{ast.Interpolation, "name"},
		{ast.StaticText, " world"},
	}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts, want %d", len(parts), len(want))
	}
	for i, w := range want {
		if parts[i].Type != w.typ || string(parts[i].Content) != w.content {
			t.Errorf("part %d = %s %q, want %s %q", i, parts[i].Type, parts[i].Content, w.typ, w.content)
		}
	}
}

func TestNextUnescapedTriple(t *testing.T) {
	s := newScanner(t, "{{{raw}}}")
	parts := drain(t, s)
	// A lone tag still yields an empty static part before it and a final
	// empty static part after it.
	if len(parts) != 3 || parts[1].Type != ast.UnescapedInterpolation || string(parts[1].Content) != "raw" {
		t.Fatalf("parts = %+v", parts)
	}
}

func TestNextSigilClassification(t *testing.T) {
	cases := []struct {
		tag  string
		want ast.PartType
	}{
		{"{{#a}}", ast.Section},
		{"{{^a}}", ast.InvertedSection},
		{"{{/a}}", ast.CloseSection},
		{"{{>a}}", ast.Partial},
		{"{{<a}}", ast.Parent},
		{"{{$a}}", ast.Block},
		{"{{&a}}", ast.UnescapedInterpolation},
		{"{{!a}}", ast.Comment},
	}
	for _, c := range cases {
		s := newScanner(t, c.tag)
		parts := drain(t, s)
		if len(parts) != 3 || parts[1].Type != c.want {
			t.Errorf("%q classified as %+v, want %s", c.tag, parts, c.want)
		}
	}
}

func TestUnclosedTagIsError(t *testing.T) {
	s := newScanner(t, "hello {{name")
	if _, err := s.Next(); err != nil {
		t.Fatalf("first Next (static run): %v", err)
	}
	_, err := s.Next()
	if err == nil {
		t.Fatal("expected an error for an unclosed tag")
	}
	se, ok := err.(*Error)
	if !ok || se.Kind != ErrUnexpectedEof {
		t.Errorf("got %v, want ErrUnexpectedEof", err)
	}
}

// TestBookmarkNesting is a regression test: bookmarks must nest (a stack),
// not share one slot, so an outer section's inner text survives an inner
// section opening and closing partway through it. See the doc comment on
// Scanner.bms.
func TestBookmarkNesting(t *testing.T) {
	s := newScanner(t, "{{#A}}{{#B}}x{{/B}}y{{/A}}")

	// Consume "{{#A}}" to position just after the outer open tag, then
	// begin the outer bookmark exactly where the parser would.
	if _, err := s.Next(); err != nil { // static_text "" before {{#A}}
		t.Fatalf("Next: %v", err)
	}
	p, err := s.Next() // {{#A}} tag itself
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.Type != ast.Section {
		t.Fatalf("expected Section, got %s", p.Type)
	}
	s.BeginBookmark() // outer bookmark starts here, mirroring the parser

	if _, err := s.Next(); err != nil { // static_text "" before {{#B}}
		t.Fatalf("Next: %v", err)
	}
	p, err = s.Next() // {{#B}}
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.Type != ast.Section {
		t.Fatalf("expected inner Section, got %s", p.Type)
	}
	s.BeginBookmark() // inner bookmark starts here

	if _, err := s.Next(); err != nil { // static_text "x"
		t.Fatalf("Next: %v", err)
	}
	p, err = s.Next() // {{/B}}
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.Type != ast.CloseSection {
		t.Fatalf("expected CloseSection, got %s", p.Type)
	}
	innerGot := s.EndBookmark()
	if n := len(innerGot) - p.RawLen; n >= 0 {
		innerGot = innerGot[:n]
	}
	if innerGot != "x" {
		t.Errorf("inner EndBookmark() = %q, want %q", innerGot, "x")
	}

	if _, err := s.Next(); err != nil { // static_text "y"
		t.Fatalf("Next: %v", err)
	}
	p, err = s.Next() // {{/A}}
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if p.Type != ast.CloseSection {
		t.Fatalf("expected CloseSection, got %s", p.Type)
	}
	outerGot := s.EndBookmark()
	if n := len(outerGot) - p.RawLen; n >= 0 {
		outerGot = outerGot[:n]
	}
	if outerGot != "{{#B}}x{{/B}}y" {
		t.Errorf("outer EndBookmark() = %q, want %q (must not be emptied by the inner bookmark's end)", outerGot, "{{#B}}x{{/B}}y")
	}
}

func TestEndBookmarkWithoutBeginReturnsEmpty(t *testing.T) {
	s := newScanner(t, "x")
	if got := s.EndBookmark(); got != "" {
		t.Errorf("EndBookmark() with no active bookmark = %q, want empty", got)
	}
}
