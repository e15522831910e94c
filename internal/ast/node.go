package ast

import "github.com/partario/mustache/internal/delim"

// NoTrim is the sentinel value for an absent left/right trim index, used
// on Node the same way the scanner's TextPart uses it.
const NoTrim = -1

// Node is the parser's working representation: everything an Element
// carries, plus the bits only needed while parsing (the raw tag body, the
// source position for error reporting, and an in-progress ChildrenCount
// that gets fixed up when the matching close tag is found). The parser's
// node list is discarded once Elements are materialized; nothing downstream
// ever sees a Node.
type Node struct {
	Type PartType
	Line int
	Col  int

	// For StaticText, the original, untrimmed literal bytes; the parser
	// leaves it nil on tag nodes. Text is never
	// mutated once set — StaticText trimming instead narrows trimLo/trimHi,
	// since a single static run can be trimmed from the left (as the text
	// following one standalone tag) and, independently and possibly later,
	// from the right (as the text preceding the next one). Reslicing Text
	// itself on the first trim would make the second trim's original,
	// content-relative offset point at the wrong bytes.
	Text           []byte
	trimLo, trimHi int

	// LeftTrimAt, RightTrimAt and Blank mirror the scanner's TextPart
	// trim metadata (StaticText only): they let this node, once it
	// becomes the "preceding text" for a later tag, answer the
	// standalone-line question without re-scanning its bytes.
	LeftTrimAt, RightTrimAt int
	Blank                   bool

	Path Path

	// ChildrenCount accumulates, during parsing, the total number of raw
	// nodes appended anywhere in this section's subtree (direct children
	// and their descendants alike), fixed to its final value when the
	// matching CloseSection tag is read. It is a raw count: trimmed-to-empty
	// StaticText nodes are included here even though they never
	// materialize into the final Element list. (Comment, Delimiters and
	// CloseSection tags never become nodes, so they are not counted.)
	// The parser's materialization pass walks this raw count to find each
	// section's raw subtree boundary and recomputes the Element-level
	// ChildrenCount from only the nodes that survive filtering.
	ChildrenCount int

	InnerText  string
	Delimiters delim.Pair

	Key         string
	Indentation string

	// Standalone records whether the trimmer/parser decided this node
	// occupies its own line, for nodes where that matters.
	Standalone bool
}

// NewStaticNode builds a StaticText node with its trim bounds initialized
// to the full, untrimmed extent of text.
func NewStaticNode(text []byte, line, col int) *Node {
	return &Node{Type: StaticText, Text: text, Line: line, Col: col, trimHi: len(text), LeftTrimAt: NoTrim, RightTrimAt: NoTrim}
}

// TrimLeft narrows the node's effective text to start no earlier than at.
// Called at most meaningfully once per node, but idempotent: a
// less-aggressive trim never widens a bound an earlier trim already
// narrowed.
func (n *Node) TrimLeft(at int) {
	if at > n.trimLo {
		n.trimLo = at
	}
}

// TrimRight narrows the node's effective text to end no later than at.
func (n *Node) TrimRight(at int) {
	if at < n.trimHi {
		n.trimHi = at
	}
}

// TrimmedText returns the node's current effective text, after whatever
// TrimLeft/TrimRight calls have been applied.
func (n *Node) TrimmedText() []byte {
	if n.trimLo >= n.trimHi {
		return nil
	}
	return n.Text[n.trimLo:n.trimHi]
}

// IsEmptyAfterTrim reports whether a StaticText node's trimmed content is
// empty — such nodes never materialize into an Element.
func (n *Node) IsEmptyAfterTrim() bool { return n.trimLo >= n.trimHi }

// ToElement materializes the final Element for a Node. Called once the
// node's ChildrenCount (if any) is fixed. ChildrenCount is passed in
// separately rather than read from the node, since the materialization
// pass recomputes it from the filtered (not raw) node sequence.
func (n *Node) ToElement(childrenCount int) Element {
	text := n.Text
	if n.Type == StaticText {
		text = n.TrimmedText()
	}
	return Element{
		Type:          n.Type,
		Text:          text,
		Path:          n.Path,
		ChildrenCount: childrenCount,
		InnerText:     n.InnerText,
		Delimiters:    n.Delimiters,
		Key:           n.Key,
		Indentation:   n.Indentation,
	}
}

// SplitPath splits a dotted identifier into a Path. "." denotes the
// implicit iterator and yields the empty Path.
func SplitPath(identifier string) Path {
	if identifier == "." {
		return Path{}
	}
	parts := []string{}
	start := 0
	for i := 0; i < len(identifier); i++ {
		if identifier[i] == '.' {
			parts = append(parts, identifier[start:i])
			start = i + 1
		}
	}
	parts = append(parts, identifier[start:])
	return Path(parts)
}
