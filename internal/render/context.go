// Package render implements the renderer and context resolver (spec.md
// §4.4/§4.5): a linear walk over a parsed ast.Element sequence that
// resolves dotted paths against a polymorphic Context, drives section
// iteration and lambda invocation, and manages partial/parent/block
// expansion with indentation.
package render

import "github.com/partario/mustache/internal/delim"

// ResolutionKind tags the variant carried by a Resolution.
type ResolutionKind int

const (
	// NotFoundInContext: the path's first segment was not found anywhere
	// on the context stack.
	NotFoundInContext ResolutionKind = iota
	// ChainBroken: a later path segment was not found on the previous
	// segment's result (no parent-stack fallback for non-first segments).
	ChainBroken
	// Field: path resolved to a plain value.
	Field
	// Lambda: path resolved to a callable; Value carries the invoker.
	Lambda
	// IteratorConsumed: iterator() exhausted normally.
	IteratorConsumed
)

// Resolution is the sum type returned by Context.Get and Context.Iterator
// (spec.md §4.5): exactly one of NotFoundInContext, ChainBroken, Field or
// Lambda for Get; IteratorConsumed additionally applies to Iterator.
type Resolution struct {
	Kind  ResolutionKind
	Value Context
	Iter  Iterator
}

func found(c Context) Resolution   { return Resolution{Kind: Field, Value: c} }
func lambdaRes(c Context) Resolution { return Resolution{Kind: Lambda, Value: c} }
func notFound() Resolution         { return Resolution{Kind: NotFoundInContext} }
func chainBroken() Resolution      { return Resolution{Kind: ChainBroken} }

// Iterator yields successive child Contexts for section expansion.
type Iterator interface {
	// Next returns the next child context, or ok=false when exhausted.
	Next() (ctx Context, ok bool)
}

// Context is the five-operation polymorphic context of spec.md §4.5.
// Native (reflect-based struct/map), dynamic (map[string]any tree) and
// callback (FFI vtable) adapters all implement it; the renderer never
// branches on which one it has.
type Context interface {
	// Get resolves path on this context. An empty path returns this
	// context itself wrapped as Field (the implicit iterator).
	Get(path []string) Resolution

	// Iterator begins iteration over the value at path. A non-list truthy
	// value becomes a single-item iterator over itself; false/nil/empty
	// becomes an empty iterator.
	Iterator(path []string) Resolution

	// CapacityHint is a best-effort byte-size estimate for path's value,
	// used only to pre-size render buffers; 0 is always a valid answer.
	CapacityHint(path []string) int

	// Interpolate writes path's value directly to w, applying escape if
	// non-nil. Returns false if path did not resolve to a field (caller
	// falls back to Get-based handling, e.g. lambda invocation).
	Interpolate(path []string, escape func([]byte) []byte, w Writer) (bool, error)

	// ExpandLambda invokes the lambda at path (path may be empty, meaning
	// "this context is itself the lambda", used for section lambdas)
	// with innerText, parses the lambda's returned string as a template
	// under delims, and renders it against the current stack, writing to
	// w. Returns false if path is not a lambda.
	ExpandLambda(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error)
}

// Writer is the minimal sink the context/renderer writes bytes to; it is
// satisfied by any io.Writer, including the indentWriter that
// Renderer.Render wraps its output in to thread partial indentation.
type Writer interface {
	Write(p []byte) (int, error)
}
