// Package ast defines the tag-variant vocabulary shared by the scanner,
// parser and renderer: PartType (what kind of tag was seen), Path (a
// resolved dotted identifier) and Element (the parser's output, a flat
// pre-order sequence with ChildrenCount standing in for a child pointer).
package ast

import "github.com/partario/mustache/internal/delim"

// PartType classifies a scanned tag body (or a run of plain text) before
// an identifier is extracted from it.
type PartType int

const (
	StaticText PartType = iota
	Comment
	Delimiters
	Interpolation
	UnescapedInterpolation
	Section
	InvertedSection
	CloseSection
	Partial
	Parent
	Block
)

func (t PartType) String() string {
	switch t {
	case StaticText:
		return "StaticText"
	case Comment:
		return "Comment"
	case Delimiters:
		return "Delimiters"
	case Interpolation:
		return "Interpolation"
	case UnescapedInterpolation:
		return "UnescapedInterpolation"
	case Section:
		return "Section"
	case InvertedSection:
		return "InvertedSection"
	case CloseSection:
		return "CloseSection"
	case Partial:
		return "Partial"
	case Parent:
		return "Parent"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// CanBeStandalone reports whether a tag of this type is eligible to occupy
// its own line (and therefore have surrounding whitespace trimmed). Plain
// text and the two interpolation forms never qualify.
func CanBeStandalone(t PartType) bool {
	switch t {
	case StaticText, Interpolation, UnescapedInterpolation:
		return false
	default:
		return true
	}
}

// Path is an ordered sequence of name parts split on '.'. The empty Path
// denotes the implicit iterator "{{.}}".
type Path []string

func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	s := p[0]
	for _, part := range p[1:] {
		s += "." + part
	}
	return s
}

// Element is the parser's output: a tagged union over the PartTypes that
// survive into the render tree (StaticText through Block; Comment and
// Delimiters are consumed during parsing and never materialize here).
//
// Elements are arranged in a flat pre-order sequence. For a section-like
// element at index i with ChildrenCount n, elements [i+1, i+1+n) are its
// body; no CloseSection element is ever materialized.
type Element struct {
	Type PartType

	// StaticText
	Text []byte

	// Interpolation / UnescapedInterpolation / Section / InvertedSection
	Path Path

	// Section / InvertedSection / Parent / Block
	ChildrenCount int

	// Section only: the verbatim source between the opening and closing
	// tag (for lambda re-rendering), and the delimiter pair active when
	// the section was opened (lambdas re-parse their return value under
	// these delimiters).
	InnerText  string
	Delimiters delim.Pair

	// Partial / Parent / Block: the tag's identifier.
	Key string
	// Indentation is the leading whitespace of the partial/parent tag's
	// line, present only when the tag was standalone; it is prepended to
	// every line the partial renders. Block tags never carry one.
	Indentation string
}
