package render

import (
	"io"

	"github.com/partario/mustache/internal/ast"
)

// Options configures a Renderer (spec.md §6, the render-facing subset).
type Options struct {
	// ContextMissesFail selects render.context_misses: false (default,
	// "empty") writes nothing for a missing path; true ("fail") aborts
	// the render with an error instead when an interpolation's first path
	// segment is found nowhere on the context stack. A later segment
	// missing on the previous segment's value (ChainBroken) always writes
	// nothing.
	ContextMissesFail bool
	// MaxRecursion bounds lambda-triggered re-parse/render nesting
	// (spec.md §4.6); 0 means the default of 100.
	MaxRecursion int
}

// Renderer drives the linear walk of spec.md §4.4 over a parsed element
// sequence, maintaining the indentation queue and lambda recursion depth
// across partial/parent/lambda expansion. One Renderer instance belongs
// to a single top-level Render call; Feed (used by the streaming driver)
// may be called repeatedly against the same instance.
type Renderer struct {
	partials Partials
	opts     Options
	indent   indentQueue
	depth    int
}

// New builds a Renderer bound to a fixed partials table.
func New(partials Partials, opts Options) *Renderer {
	if opts.MaxRecursion <= 0 {
		opts.MaxRecursion = 100
	}
	if partials == nil {
		partials = Partials{}
	}
	return &Renderer{partials: partials, opts: opts}
}

// Render walks the full element sequence once, writing to w.
func (r *Renderer) Render(elements []ast.Element, ctx Context, w io.Writer) error {
	iw := newIndentWriter(w, &r.indent)
	_, err := r.renderRange(elements, 0, len(elements), ctx, iw, nil)
	return err
}

// Feed renders one streamed batch (spec.md §4.9); the caller guarantees
// batches never split a section's body.
func (r *Renderer) Feed(elements []ast.Element, ctx Context, w io.Writer) error {
	return r.Render(elements, ctx, w)
}

func opensLevel(t ast.PartType) bool {
	switch t {
	case ast.Section, ast.InvertedSection, ast.Parent, ast.Block:
		return true
	default:
		return false
	}
}

// renderRange renders elements[i:end] and returns the index just past
// end (always == end; returned for symmetry with the section/parent
// skip-ahead helpers that share its shape).
func (r *Renderer) renderRange(elements []ast.Element, i, end int, ctx Context, w Writer, overrides map[string][]ast.Element) (int, error) {
	for i < end {
		el := elements[i]
		switch el.Type {
		case ast.StaticText:
			if _, err := w.Write(el.Text); err != nil {
				return i, err
			}
			i++

		case ast.Interpolation:
			if err := r.renderInterpolation(el, ctx, w, escapeHTML); err != nil {
				return i, err
			}
			i++

		case ast.UnescapedInterpolation:
			if err := r.renderInterpolation(el, ctx, w, nil); err != nil {
				return i, err
			}
			i++

		case ast.Section:
			if err := r.renderSection(elements, el, i, ctx, w, overrides); err != nil {
				return i, err
			}
			i += 1 + el.ChildrenCount

		case ast.InvertedSection:
			if err := r.renderInvertedSection(elements, el, i, ctx, w, overrides); err != nil {
				return i, err
			}
			i += 1 + el.ChildrenCount

		case ast.Partial:
			if err := r.renderPartial(el.Key, el.Indentation, ctx, w); err != nil {
				return i, err
			}
			i++

		case ast.Parent:
			if err := r.renderParent(elements, el, i, ctx, w, overrides); err != nil {
				return i, err
			}
			i += 1 + el.ChildrenCount

		case ast.Block:
			body := elements[i+1 : i+1+el.ChildrenCount]
			if ov, ok := overrides[el.Key]; ok {
				body = ov
			}
			if _, err := r.renderRange(body, 0, len(body), ctx, w, overrides); err != nil {
				return i, err
			}
			i += 1 + el.ChildrenCount

		default:
			i++
		}
	}
	return end, nil
}

func (r *Renderer) renderInterpolation(el ast.Element, ctx Context, w Writer, escape func([]byte) []byte) error {
	res := ctx.Get(el.Path)
	switch res.Kind {
	case NotFoundInContext:
		if r.opts.ContextMissesFail {
			return &MissingContextError{Path: el.Path}
		}
		return nil
	case ChainBroken:
		return nil
	case Lambda:
		if r.depth >= r.opts.MaxRecursion {
			return nil
		}
		r.depth++
		_, err := res.Value.ExpandLambda(nil, "", escape, el.Delimiters, w)
		r.depth--
		return err
	default:
		_, err := ctx.Interpolate(el.Path, escape, w)
		return err
	}
}

func (r *Renderer) renderSection(elements []ast.Element, el ast.Element, i int, ctx Context, w Writer, overrides map[string][]ast.Element) error {
	body := elements[i+1 : i+1+el.ChildrenCount]
	res := ctx.Iterator(el.Path)
	switch res.Kind {
	case NotFoundInContext, ChainBroken, IteratorConsumed:
		return nil
	case Lambda:
		if r.depth >= r.opts.MaxRecursion {
			return nil
		}
		r.depth++
		_, err := res.Value.ExpandLambda(nil, el.InnerText, nil, el.Delimiters, w)
		r.depth--
		return err
	}
	for {
		child, ok := res.Iter.Next()
		if !ok {
			break
		}
		if _, err := r.renderRange(body, 0, len(body), child, w, overrides); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderInvertedSection(elements []ast.Element, el ast.Element, i int, ctx Context, w Writer, overrides map[string][]ast.Element) error {
	body := elements[i+1 : i+1+el.ChildrenCount]
	res := ctx.Iterator(el.Path)
	falsy := false
	switch res.Kind {
	case NotFoundInContext, ChainBroken, IteratorConsumed:
		falsy = true
	case Lambda:
		falsy = false
	default:
		if _, ok := res.Iter.Next(); !ok {
			falsy = true
		}
	}
	if !falsy {
		return nil
	}
	_, err := r.renderRange(body, 0, len(body), ctx, w, overrides)
	return err
}

func (r *Renderer) renderPartial(key, indentation string, ctx Context, w Writer) error {
	elems, ok := r.partials[key]
	if !ok {
		return nil
	}
	if indentation != "" {
		r.indent.push(indentation)
		defer r.indent.pop()
	}
	_, err := r.renderRange(elems, 0, len(elems), ctx, w, nil)
	return err
}

func (r *Renderer) renderParent(elements []ast.Element, el ast.Element, i int, ctx Context, w Writer, overrides map[string][]ast.Element) error {
	body := elements[i+1 : i+1+el.ChildrenCount]
	own := extractTopLevelBlocks(body)

	merged := map[string][]ast.Element{}
	for k, v := range overrides {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}

	elems, ok := r.partials[el.Key]
	if !ok {
		return nil
	}
	if el.Indentation != "" {
		r.indent.push(el.Indentation)
		defer r.indent.pop()
	}
	_, err := r.renderRange(elems, 0, len(elems), ctx, w, merged)
	return err
}

// extractTopLevelBlocks collects the Block elements that are direct
// children of a parent invocation's body (spec.md §4.4 item 7); blocks
// nested inside a Section/InvertedSection/another Parent at this level
// are not override candidates, matching the Mustache inheritance spec's
// "direct child of the pair" rule.
func extractTopLevelBlocks(body []ast.Element) map[string][]ast.Element {
	out := map[string][]ast.Element{}
	i := 0
	for i < len(body) {
		el := body[i]
		if el.Type == ast.Block {
			out[el.Key] = body[i+1 : i+1+el.ChildrenCount]
		}
		if opensLevel(el.Type) {
			i += 1 + el.ChildrenCount
		} else {
			i++
		}
	}
	return out
}

// MissingContextError is returned by Render when Options.ContextMissesFail
// is set and an interpolated path's first segment is not found.
type MissingContextError struct {
	Path []string
}

func (e *MissingContextError) Error() string {
	s := "."
	for i, p := range e.Path {
		if i == 0 {
			s = p
		} else {
			s += "." + p
		}
	}
	return "mustache: missing variable " + s
}
