// Package parse implements the mustache parser (spec.md §4.3, component
// C5): a recursive-descent consumer of scanner TextParts that builds the
// flat pre-order Node list, resolves standalone-line trimming across tag
// boundaries, matches section nesting, and materializes the final
// Element sequence — either all at once (cache mode) or in bounded
// batches fed to a streaming sink (render mode), backed by an
// internal/arena.Epoch.
package parse

import (
	"fmt"
	"io"
	"strings"

	"github.com/partario/mustache/internal/arena"
	"github.com/partario/mustache/internal/ast"
	"github.com/partario/mustache/internal/delim"
	"github.com/partario/mustache/internal/scan"
)

// Sink receives a contiguous batch of the element sequence in source
// order. No section's body is ever split across two batches.
type Sink func(batch []ast.Element) error

// Options configures parsing behavior (spec.md §6 Options table, the
// subset relevant to the parser).
type Options struct {
	// AllowRedefineDelimiters: if false, {{= =}} is a parse error.
	AllowRedefineDelimiters bool
	// PreserveLineBreaksAndIndentation disables standalone trimming.
	PreserveLineBreaksAndIndentation bool
	// Lambdas enables method-as-lambda lookup and section inner-text
	// bookmark capture.
	Lambdas bool
	// CopyStrings duplicates every emitted slice rather than borrowing
	// into the source buffer. Required for file-mode sources and forced
	// on internally when the scanner is reader-backed.
	CopyStrings bool
	// Sink, if non-nil, switches to render (streaming) mode: elements
	// are fed to Sink in batches instead of being collected and
	// returned. ChunkSize (via NewFromReader) and Sink together bound
	// memory use for large templates.
	Sink Sink
}

// Parser consumes scanner events into the flat Node list described in
// spec.md §3/§4.3, then materializes Elements.
type Parser struct {
	sc     *scan.Scanner
	delims delim.Pair
	opts   Options

	nodes []*ast.Node

	// pending tracks the most recently emitted tag awaiting the next
	// static_text part to resolve whether it was standalone. It is
	// parser-level (not local to begin_level) because static/tag parts
	// strictly alternate across recursive begin_level calls: a
	// section-opening tag's "following" static part is read inside the
	// recursive call for its body, not by the caller.
	pending *pendingTag

	// beforeFirstTag is true until the first tag of any kind has been
	// noted; it backs the "back to start-of-input" fallback in the
	// standalone-preceding check.
	beforeFirstTag bool

	// prevStatic is the most recently appended StaticText node, used as
	// the "preceding text" candidate for the next tag's standalone check.
	prevStatic *ast.Node

	// flushed is not read or written by the parser: after each flush
	// (render mode only) nodes is rebased to start at 0 again, so the
	// boundary up to which raw nodes have been fed to the sink is always 0.
	flushed int
	epoch   *arena.Epoch

	lastErr *Error
}

type pendingTag struct {
	node          *ast.Node // nil for comment/delimiters (no materializing node)
	canStandalone bool
	precedingOK   bool
	prevStatic    *ast.Node
	rightTrimFrom int
}

// New builds a parser over an in-memory template.
func New(src []byte, delims delim.Pair, opts Options) *Parser {
	p := &Parser{
		sc:             scan.NewFromString(src),
		delims:         delims,
		opts:           opts,
		beforeFirstTag: true,
	}
	if opts.Sink != nil {
		p.epoch = arena.NewEpoch()
	}
	return p
}

// NewFromReader builds a parser over a streamed (file) source. copy_strings
// is forced on regardless of opts, since the scanner's chunks are recycled.
func NewFromReader(r io.Reader, chunkSize int, delims delim.Pair, opts Options) *Parser {
	opts.CopyStrings = true
	p := &Parser{
		sc:             scan.NewFromReader(r, chunkSize),
		delims:         delims,
		opts:           opts,
		beforeFirstTag: true,
	}
	if opts.Sink != nil {
		p.epoch = arena.NewEpoch()
	}
	return p
}

// LastError returns the error recorded by the most recent failed Parse,
// or nil.
func (p *Parser) LastError() *Error { return p.lastErr }

// Parse runs the parser to completion. In cache mode it returns the full
// materialized Element sequence. In render mode (Options.Sink set) it
// streams batches to the sink and returns a nil slice.
func (p *Parser) Parse() ([]ast.Element, error) {
	if err := p.sc.SetDelimiters(p.delims); err != nil {
		return nil, p.newErr(ErrInvalidDelimiters, 0, 0, err.Error())
	}
	if err := p.beginLevel(0, p.delims, nil, -1); err != nil {
		return nil, err
	}
	if p.opts.Sink != nil {
		if err := p.finalFlush(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return materialize(p.nodes), nil
}

// beginLevel consumes one nesting level: level 0 is the template root,
// level > 0 is the body of the section-like node at ancestors' top
// (openIdx). ancestors lists the raw node indices of every currently
// open section-like ancestor, innermost last; it is threaded through
// recursive calls rather than kept on a parser-level stack because each
// recursive call's own slice append is safe precisely because recursion
// here is synchronous and sequential (spec.md §5).
func (p *Parser) beginLevel(level int, delimsIn delim.Pair, ancestors []int, openIdx int) error {
	delims := delimsIn
	for {
		part, err := p.sc.Next()
		if err != nil {
			return p.wrapScanErr(err)
		}
		if part == nil {
			if level > 0 {
				return p.newErr(ErrUnexpectedEof, 0, 0, "unexpected end of input inside open section")
			}
			return nil
		}

		switch part.Type {
		case ast.StaticText:
			leftBoundary := p.resolvePendingTag(part)
			n := ast.NewStaticNode(p.ownBytes(part.Content), part.Line, part.Col)
			n.LeftTrimAt, n.RightTrimAt, n.Blank = part.LeftTrimAt, part.RightTrimAt, part.Blank
			if leftBoundary >= 0 {
				n.TrimLeft(leftBoundary)
			}
			p.appendNode(n, ancestors)
			p.prevStatic = n
			part.Release()

			if p.opts.Sink != nil && level == 0 {
				if err := p.maybeFlush(); err != nil {
					return err
				}
			}

		case ast.Comment:
			p.notePendingTag(ast.Comment, nil, part)
			part.Release()

		case ast.Delimiters:
			nd, err := p.parseDelimitersBody(part)
			if err != nil {
				return err
			}
			if err := p.sc.SetDelimiters(nd); err != nil {
				return p.wrapDelimErr(err, part, nd)
			}
			delims = nd
			p.notePendingTag(ast.Delimiters, nil, part)
			part.Release()

		case ast.CloseSection:
			identifier, err := p.tokenizeIdentifier(part)
			if err != nil {
				return err
			}
			if level == 0 || openIdx < 0 {
				return p.newErr(ErrUnexpectedCloseSection, part.Line, part.Col, fmt.Sprintf("unexpected close tag %q", identifier))
			}
			open := p.nodes[openIdx]
			want := openIdentifier(open)
			if identifier != want {
				return p.newErr(ErrClosingTagMismatch, part.Line, part.Col, fmt.Sprintf("mismatched close tag: expected %q, got %q", want, identifier))
			}
			open.ChildrenCount = len(p.nodes) - openIdx - 1
			if p.opts.Lambdas && open.Type == ast.Section {
				inner := p.sc.EndBookmark()
				if n := len(inner) - part.RawLen; n >= 0 {
					inner = inner[:n]
				}
				open.InnerText = inner
			}
			p.notePendingTag(ast.CloseSection, nil, part)
			part.Release()
			return nil

		default:
			n, err := p.buildTagNode(part, delims)
			if err != nil {
				return err
			}
			idx := p.appendNode(n, ancestors)
			p.notePendingTag(n.Type, n, part)
			part.Release()

			if opensLevel(n.Type) {
				if p.opts.Lambdas && n.Type == ast.Section {
					p.sc.BeginBookmark()
				}
				if err := p.beginLevel(level+1, delims, append(ancestors, idx), idx); err != nil {
					return err
				}
				if err := p.sc.SetDelimiters(delims); err != nil {
					return p.newErr(ErrInvalidDelimiters, part.Line, part.Col, err.Error())
				}
			}
		}
	}
}

// ownBytes duplicates content when the parser's copy_strings policy
// requires it (file-mode sources, or an explicit option); string-mode
// sources may borrow directly, per spec.md §4.3.
func (p *Parser) ownBytes(content []byte) []byte {
	if !p.opts.CopyStrings {
		return content
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out
}

// appendNode appends n to the raw node list and increments every open
// ancestor's raw (pre-materialization) ChildrenCount, returning n's index.
func (p *Parser) appendNode(n *ast.Node, ancestors []int) int {
	idx := len(p.nodes)
	p.nodes = append(p.nodes, n)
	for _, a := range ancestors {
		p.nodes[a].ChildrenCount++
	}
	return idx
}

// notePendingTag records a just-emitted tag as a candidate standalone
// line, resolving its "preceding text" side immediately (the only side
// that is already known): whether the text before it is blank back to
// the previous newline, or — only for the very first tag in the
// template — blank back to start-of-input.
func (p *Parser) notePendingTag(t ast.PartType, n *ast.Node, part *scan.TextPart) {
	can := ast.CanBeStandalone(t) && !p.opts.PreserveLineBreaksAndIndentation
	pt := &pendingTag{node: n, canStandalone: can}
	if can {
		prev := p.prevStatic
		switch {
		case prev != nil && prev.RightTrimAt != ast.NoTrim:
			pt.precedingOK = true
			pt.prevStatic = prev
			pt.rightTrimFrom = prev.RightTrimAt
		case prev != nil && p.beforeFirstTag && prev.Blank:
			pt.precedingOK = true
			pt.prevStatic = prev
			pt.rightTrimFrom = 0
		}
	}
	p.pending = pt
	p.beforeFirstTag = false
}

// resolvePendingTag finalizes the pending tag (if any) against the
// static_text part that follows it, applying the right-trim to the
// preceding text and marking the tag standalone if both sides qualify.
// Returns the left-trim boundary to apply to the new static node, or -1
// if none.
func (p *Parser) resolvePendingTag(part *scan.TextPart) int {
	pt := p.pending
	p.pending = nil
	if pt == nil || !pt.canStandalone || !pt.precedingOK {
		return -1
	}
	followingOK := part.HasLeftTrim() || (part.Final && part.Blank)
	if !followingOK {
		return -1
	}

	if pt.prevStatic != nil {
		pt.prevStatic.TrimRight(pt.rightTrimFrom)
	}
	if pt.node != nil {
		pt.node.Standalone = true
		if pt.node.Type == ast.Partial || pt.node.Type == ast.Parent {
			indent := ""
			if pt.prevStatic != nil {
				indent = string(pt.prevStatic.Text[pt.rightTrimFrom:])
			}
			pt.node.Indentation = indent
		}
	}
	if part.HasLeftTrim() {
		return part.LeftTrimAt
	}
	return len(part.Content)
}

// buildTagNode converts a classified, non-control TextPart (everything
// except static_text/comment/delimiters/close_section) into a Node.
func (p *Parser) buildTagNode(part *scan.TextPart, delims delim.Pair) (*ast.Node, error) {
	identifier, err := p.tokenizeIdentifier(part)
	if err != nil {
		return nil, err
	}
	n := &ast.Node{Type: part.Type, Line: part.Line, Col: part.Col, Delimiters: delims, LeftTrimAt: ast.NoTrim, RightTrimAt: ast.NoTrim}
	switch part.Type {
	case ast.Interpolation, ast.UnescapedInterpolation, ast.Section, ast.InvertedSection:
		n.Path = ast.SplitPath(identifier)
	case ast.Partial, ast.Parent, ast.Block:
		n.Key = identifier
	}
	return n, nil
}

// tokenizeIdentifier validates a tag body as a single dotted-path
// identifier (spec.md §6): one or more non-whitespace, '.'-separated
// tokens, or exactly "." for the implicit iterator.
func (p *Parser) tokenizeIdentifier(part *scan.TextPart) (string, error) {
	s := strings.TrimSpace(string(part.Content))
	if s == "" {
		return "", p.newErr(ErrInvalidIdentifier, part.Line, part.Col, "empty identifier")
	}
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			return "", p.newErr(ErrInvalidIdentifier, part.Line, part.Col, fmt.Sprintf("identifier must be a single token, got %q", s))
		}
	}
	return s, nil
}

// parseDelimitersBody validates and builds the new delimiter pair from a
// {{=new_start new_end=}} tag body. The scanner guarantees exactly two
// whitespace-separated tokens and a stripped trailing '='; the parser
// additionally enforces the allow_redefine_delimiters feature and
// delim.Pair's own invariants.
func (p *Parser) parseDelimitersBody(part *scan.TextPart) (delim.Pair, error) {
	if !p.opts.AllowRedefineDelimiters {
		return delim.Pair{}, p.newErr(ErrInvalidDelimiters, part.Line, part.Col, "delimiter redefinition is disabled")
	}
	fields := strings.Fields(string(part.Content))
	if len(fields) != 2 {
		return delim.Pair{}, p.newErr(ErrInvalidDelimiters, part.Line, part.Col, "expected two delimiter tokens")
	}
	nd := delim.Pair{Start: fields[0], End: fields[1]}
	if err := nd.Validate(); err != nil {
		return delim.Pair{}, p.newErr(classifyDelimiterError(nd.Start, nd.End), part.Line, part.Col, err.Error())
	}
	return nd, nil
}

func classifyDelimiterError(start, end string) ErrKind {
	switch {
	case start == "":
		return ErrStartingDelimiterMismatch
	case end == "":
		return ErrEndingDelimiterMismatch
	case strings.Contains(end, start):
		return ErrStartingDelimiterMismatch
	case strings.Contains(start, end):
		return ErrEndingDelimiterMismatch
	default:
		return ErrEndingDelimiterMismatch
	}
}

func (p *Parser) wrapScanErr(err error) error {
	se, ok := err.(*scan.Error)
	if !ok {
		return err
	}
	kind := ErrUnexpectedEof
	if se.Kind == scan.ErrInvalidDelimiters {
		kind = ErrInvalidDelimiters
	}
	return p.newErr(kind, se.Line, se.Col, se.Message)
}

func (p *Parser) wrapDelimErr(err error, part *scan.TextPart, nd delim.Pair) error {
	return p.newErr(classifyDelimiterError(nd.Start, nd.End), part.Line, part.Col, err.Error())
}

// openIdentifier returns the dotted identifier a close_section tag must
// match to close n.
func openIdentifier(n *ast.Node) string {
	switch n.Type {
	case ast.Parent, ast.Block:
		return n.Key
	default:
		return n.Path.String()
	}
}

func opensLevel(t ast.PartType) bool {
	switch t {
	case ast.Section, ast.InvertedSection, ast.Parent, ast.Block:
		return true
	default:
		return false
	}
}

// maybeFlush feeds every raw node except the most recent (the seed for
// the next batch) to the sink, then rebases the node list to start at
// that seed. Only called at level 0, where ancestors is always empty, so
// no section's subtree can straddle the flush boundary (spec.md §9).
func (p *Parser) maybeFlush() error {
	end := len(p.nodes) - 1
	if end <= 0 {
		return nil
	}
	if err := p.feed(p.nodes[:end]); err != nil {
		return err
	}
	kept := make([]*ast.Node, len(p.nodes)-end)
	copy(kept, p.nodes[end:])
	p.nodes = kept
	return nil
}

func (p *Parser) finalFlush() error {
	if len(p.nodes) == 0 {
		return nil
	}
	return p.feed(p.nodes)
}

func (p *Parser) feed(raw []*ast.Node) error {
	elems := materialize(raw)
	if len(elems) == 0 {
		return nil
	}
	b := p.epoch.Open()
	for _, el := range elems {
		b.Append(el)
	}
	out := b.Close()
	err := p.opts.Sink(out)
	b.Release()
	return err
}

// materialize converts a raw node slice into the final Element sequence,
// dropping nodes that never materialize (trimmed-to-empty StaticText),
// merging consecutive StaticText nodes at the same nesting level into one
// element, and recomputing ChildrenCount from the surviving nodes only. It walks
// the raw list once with an explicit stack of open section-like frames,
// keyed by the raw index at which each frame's subtree ends — avoiding
// both a recursive descent and a child-pointer tree (spec.md §9).
func materialize(raw []*ast.Node) []ast.Element {
	out := make([]ast.Element, 0, len(raw))
	type frame struct{ elemIdx, rawEnd int }
	var stack []frame
	// mergeAt is the index of the StaticText element a directly following
	// StaticText at the same level is appended to, or -1.
	mergeAt := -1

	for i := 0; i < len(raw); i++ {
		for len(stack) > 0 && stack[len(stack)-1].rawEnd == i {
			stack = stack[:len(stack)-1]
			mergeAt = -1
		}
		n := raw[i]
		if n.Type == ast.StaticText && n.IsEmptyAfterTrim() {
			continue
		}
		if n.Type == ast.StaticText && mergeAt >= 0 {
			prev, next := out[mergeAt].Text, n.TrimmedText()
			merged := make([]byte, 0, len(prev)+len(next))
			out[mergeAt].Text = append(append(merged, prev...), next...)
			continue
		}
		elemIdx := len(out)
		out = append(out, n.ToElement(0))
		for _, f := range stack {
			out[f.elemIdx].ChildrenCount++
		}
		mergeAt = -1
		if n.Type == ast.StaticText {
			mergeAt = elemIdx
		}
		if opensLevel(n.Type) {
			stack = append(stack, frame{elemIdx: elemIdx, rawEnd: i + 1 + n.ChildrenCount})
		}
	}
	return out
}
