package scan

import "github.com/partario/mustache/internal/ast"

// none is the sentinel for an absent trim index.
const none = -1

// TextPart is one event emitted by the scanner: either a run of plain text
// or the raw, unclassified-identifier body of a tag. Lifetime is
// transient — it borrows into the scanner's current chunk in file-source
// mode, so callers that need to retain it past the next Next() call must
// either copy Content or hold a Release()-able reference (retained
// automatically when the part is produced; Release drops it).
type TextPart struct {
	Content      []byte
	Line, Col    int
	Type         ast.PartType
	LeftTrimAt   int
	RightTrimAt  int
	IsStandalone bool

	// Blank reports whether the part's entire content is blank
	// (spaces/tabs/NUL/CR, no newline) regardless of position. The parser
	// uses it two ways: at true start-of-input (no preceding tag at all)
	// it stands in for "preceding context is whitespace back to
	// start-of-input"; at true end-of-input (Final is also set) it stands
	// in for "following context is whitespace up to end-of-input" — the
	// two cases are not the same condition, so Blank is reported
	// unconditionally and left for the parser to combine with Final.
	Blank bool

	// Final reports whether this is the very last part the scanner will
	// ever emit (true end-of-input, not merely "no tag found yet").
	Final bool

	// RawLen is the number of source bytes consumed to produce a tag
	// part, including both delimiter markers. The parser uses it to trim
	// a just-ended bookmark: the bookmark naturally collects a section's
	// closing tag along with its body (capture is byte-for-byte as the
	// scanner advances), so the parser drops exactly RawLen trailing
	// bytes from the bookmark to recover inner_text without the closing
	// tag's own markup. Zero for static_text parts.
	RawLen int

	chunk *chunk
}

// HasLeftTrim reports whether LeftTrimAt is meaningful.
func (p *TextPart) HasLeftTrim() bool { return p.LeftTrimAt != none }

// HasRightTrim reports whether RightTrimAt is meaningful.
func (p *TextPart) HasRightTrim() bool { return p.RightTrimAt != none }

// Release drops this part's reference on its backing chunk, if any. Safe
// to call on a part that never held file-mode chunk backing (e.g. every
// part produced in string-source mode).
func (p *TextPart) Release() {
	if p == nil {
		return
	}
	p.chunk.release()
	p.chunk = nil
}
