package render

import "github.com/partario/mustache/internal/delim"

// CallbackContext is the foreign-context vtable adapter of spec.md
// §4.5/Design Notes: an embedder that doesn't want to implement the full
// Context interface (or isn't operating on a native Go value at all, e.g.
// a value living across a cgo/plugin boundary) supplies one function per
// operation instead. Any unset field behaves as "not found"/empty.
type CallbackContext struct {
	GetFn           func(path []string) Resolution
	IteratorFn      func(path []string) Resolution
	CapacityHintFn  func(path []string) int
	InterpolateFn   func(path []string, escape func([]byte) []byte, w Writer) (bool, error)
	ExpandLambdaFn  func(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error)
}

var _ Context = (*CallbackContext)(nil)

func (c *CallbackContext) Get(path []string) Resolution {
	if c.GetFn == nil {
		return notFound()
	}
	return c.GetFn(path)
}

func (c *CallbackContext) Iterator(path []string) Resolution {
	if c.IteratorFn == nil {
		return notFound()
	}
	return c.IteratorFn(path)
}

func (c *CallbackContext) CapacityHint(path []string) int {
	if c.CapacityHintFn == nil {
		return 0
	}
	return c.CapacityHintFn(path)
}

func (c *CallbackContext) Interpolate(path []string, escape func([]byte) []byte, w Writer) (bool, error) {
	if c.InterpolateFn == nil {
		return false, nil
	}
	return c.InterpolateFn(path, escape, w)
}

func (c *CallbackContext) ExpandLambda(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error) {
	if c.ExpandLambdaFn == nil {
		return false, nil
	}
	return c.ExpandLambdaFn(path, innerText, escape, delims, w)
}
