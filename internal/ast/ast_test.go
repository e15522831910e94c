package ast

import (
	"reflect"
	"testing"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{".", Path{}},
		{"name", Path{"name"}},
		{"a.b.c", Path{"a", "b", "c"}},
		{"a.", Path{"a", ""}},
	}
	for _, test := range tests {
		if got := SplitPath(test.in); !reflect.DeepEqual(got, test.want) {
			t.Errorf("SplitPath(%q) = %#v, want %#v", test.in, got, test.want)
		}
	}
}

func TestPathString(t *testing.T) {
	if got := (Path{}).String(); got != "." {
		t.Errorf("empty Path.String() = %q, want %q", got, ".")
	}
	if got := (Path{"a", "b"}).String(); got != "a.b" {
		t.Errorf("Path.String() = %q, want %q", got, "a.b")
	}
}

func TestPartTypeString(t *testing.T) {
	if got := Section.String(); got != "Section" {
		t.Errorf("Section.String() = %q", got)
	}
	if got := PartType(999).String(); got != "Unknown" {
		t.Errorf("PartType(999).String() = %q, want Unknown", got)
	}
}

func TestCanBeStandalone(t *testing.T) {
	for _, pt := range []PartType{StaticText, Interpolation, UnescapedInterpolation} {
		if CanBeStandalone(pt) {
			t.Errorf("%s should never be standalone", pt)
		}
	}
	for _, pt := range []PartType{Comment, Section, InvertedSection, CloseSection, Partial, Parent, Block, Delimiters} {
		if !CanBeStandalone(pt) {
			t.Errorf("%s should be eligible for standalone trimming", pt)
		}
	}
}

func TestNodeTrim(t *testing.T) {
	n := NewStaticNode([]byte("  hello  "), 1, 1)
	n.TrimLeft(2)
	n.TrimRight(7)
	if got := string(n.TrimmedText()); got != "hello" {
		t.Errorf("TrimmedText() = %q, want %q", got, "hello")
	}

	// A less-aggressive trim never widens a bound an earlier trim narrowed.
	n.TrimLeft(0)
	n.TrimRight(9)
	if got := string(n.TrimmedText()); got != "hello" {
		t.Errorf("TrimmedText() after widening attempt = %q, want %q", got, "hello")
	}
}

func TestNodeIsEmptyAfterTrim(t *testing.T) {
	n := NewStaticNode([]byte("   "), 1, 1)
	n.TrimLeft(0)
	n.TrimRight(3)
	if n.IsEmptyAfterTrim() {
		t.Error("expected non-empty before any trim narrowing")
	}
	n.TrimRight(0)
	if !n.IsEmptyAfterTrim() {
		t.Error("expected empty after trimming to zero width")
	}
}

func TestNodeToElement(t *testing.T) {
	n := NewStaticNode([]byte("hello"), 1, 1)
	n.TrimRight(len("hello"))
	el := n.ToElement(0)
	if el.Type != StaticText || string(el.Text) != "hello" {
		t.Errorf("ToElement() = %+v", el)
	}

	sec := &Node{Type: Section, Path: Path{"a"}, InnerText: "x"}
	el = sec.ToElement(3)
	if el.Type != Section || el.ChildrenCount != 3 || el.InnerText != "x" {
		t.Errorf("ToElement() for section = %+v", el)
	}
}
