package render

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/partario/mustache/internal/delim"
)

// errorType is used to structurally match a lambda's second return value
// without importing the root package's named LambdaFunc type (which
// would be a cycle: it imports this package).
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// lambdaInvoker is a normalized, already-bound call to a lambda value of
// any matching named or unnamed function type.
type lambdaInvoker func(text string, render func(string) (string, error)) (string, error)

// ReparseRender is supplied by the Renderer so nativeContext's
// ExpandLambda can re-parse a lambda's returned string as a template and
// render it against the live context stack and active delimiters,
// without internal/render importing internal/parse's Options wiring
// twice over.
type ReparseRender func(src string, delims delim.Pair, ctx Context, w Writer) error

// NativeContext adapts a compile-time Go value (struct, map, slice — the
// teacher's reflect.Value contextChain) to Context, generalizing
// hoisie-mustache's lookup/renderSection/indirect/isEmpty reflection walk
// into the five-operation interface.
type NativeContext struct {
	stack   []reflect.Value
	reparse ReparseRender
}

// NewNativeContext seeds a context stack with a single root value.
func NewNativeContext(root interface{}, reparse ReparseRender) *NativeContext {
	return &NativeContext{stack: []reflect.Value{reflect.ValueOf(root)}, reparse: reparse}
}

// NewNativeContextChain seeds a context stack from multiple root values,
// given in caller-precedence order (roots[0] wins ties, mirroring the
// teacher's contextChain convention); internally the stack is reversed so
// that resolve's top-of-stack-first walk tries roots[0] first.
func NewNativeContextChain(roots []interface{}, reparse ReparseRender) *NativeContext {
	stack := make([]reflect.Value, len(roots))
	for i, r := range roots {
		stack[len(roots)-1-i] = reflect.ValueOf(r)
	}
	return &NativeContext{stack: stack, reparse: reparse}
}

func (c *NativeContext) push(v reflect.Value) *NativeContext {
	ns := make([]reflect.Value, len(c.stack)+1)
	copy(ns, c.stack)
	ns[len(ns)-1] = v
	return &NativeContext{stack: ns, reparse: c.reparse}
}

// indirect dereferences pointers and interfaces down to a concrete value.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() {
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface:
			if v.IsNil() {
				return v
			}
			v = v.Elem()
		default:
			return v
		}
	}
	return v
}

// lookupOne resolves a single path segment against one value: a
// zero-argument method by that name takes precedence (mirroring the
// teacher), then a struct field, then a map key, then the "len" pseudo-
// segment on a sized value.
func lookupOne(v reflect.Value, name string) (reflect.Value, bool) {
	for v.IsValid() {
		if v.Kind() != reflect.Invalid {
			if m := methodByName(v, name); m.IsValid() {
				return m, true
			}
		}
		switch v.Kind() {
		case reflect.Ptr, reflect.Interface:
			v = v.Elem()
			continue
		case reflect.Struct:
			f := v.FieldByName(name)
			if f.IsValid() {
				return f, true
			}
			return reflect.Value{}, false
		case reflect.Map:
			f := v.MapIndex(reflect.ValueOf(name))
			if f.IsValid() {
				return f, true
			}
			return reflect.Value{}, false
		default:
			if name == "len" {
				switch v.Kind() {
				case reflect.Slice, reflect.Array, reflect.String, reflect.Map:
					return reflect.ValueOf(v.Len()), true
				}
			}
			return reflect.Value{}, false
		}
	}
	return reflect.Value{}, false
}

func methodByName(v reflect.Value, name string) reflect.Value {
	if !v.IsValid() {
		return reflect.Value{}
	}
	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if m.Name != name {
			continue
		}
		mv := v.Method(i)
		if mv.Type().NumIn() == 0 && mv.Type().NumOut() <= 2 {
			out := mv.Call(nil)
			if len(out) > 0 {
				return out[0]
			}
			return reflect.Value{}
		}
	}
	return reflect.Value{}
}

// isLambdaValue structurally matches v against the shape of the root
// package's LambdaFunc: func(string, F) (string, error) where F is
// itself func(string) (string, error) — checked by Kind/NumIn/NumOut
// rather than by type identity, since a named type defined in the root
// package (which imports this one) can never be named here, only
// recognized by its structure. On match it returns an invoker bound to v
// via reflect.Call, bridging to/from the caller's plain Go closures with
// reflect.MakeFunc for the nested render parameter.
func isLambdaValue(v reflect.Value) (lambdaInvoker, bool) {
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, false
	}
	t := v.Type()
	if t.NumIn() != 2 || t.NumOut() != 2 {
		return nil, false
	}
	if t.In(0).Kind() != reflect.String {
		return nil, false
	}
	if t.Out(0).Kind() != reflect.String || !t.Out(1).Implements(errorType) {
		return nil, false
	}
	renderType := t.In(1)
	if renderType.Kind() != reflect.Func || renderType.NumIn() != 1 || renderType.NumOut() != 2 {
		return nil, false
	}
	if renderType.In(0).Kind() != reflect.String {
		return nil, false
	}
	if renderType.Out(0).Kind() != reflect.String || !renderType.Out(1).Implements(errorType) {
		return nil, false
	}

	fn := func(text string, render func(string) (string, error)) (string, error) {
		renderVal := reflect.MakeFunc(renderType, func(args []reflect.Value) []reflect.Value {
			out, err := render(args[0].String())
			errVal := reflect.Zero(renderType.Out(1))
			if err != nil {
				errVal = reflect.ValueOf(err)
			}
			return []reflect.Value{reflect.ValueOf(out), errVal}
		})
		results := v.Call([]reflect.Value{reflect.ValueOf(text), renderVal})
		var outErr error
		if !results[1].IsNil() {
			outErr = results[1].Interface().(error)
		}
		return results[0].String(), outErr
	}
	return fn, true
}

func isEmptyValue(v reflect.Value) bool {
	v = indirect(v)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Array, reflect.Map:
		return v.Len() == 0
	case reflect.String:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// resolve walks path across the stack: p0 retries every frame from top to
// root; later segments chain strictly off the previous result.
func (c *NativeContext) resolve(path []string) (reflect.Value, ResolutionKind) {
	if len(path) == 0 {
		if len(c.stack) == 0 {
			return reflect.Value{}, NotFoundInContext
		}
		return c.stack[len(c.stack)-1], Field
	}

	name := path[0]
	var cur reflect.Value
	okFound := false
	for i := len(c.stack) - 1; i >= 0; i-- {
		if v, ok := lookupSegment(c.stack[i], name); ok {
			cur = v
			okFound = true
			break
		}
	}
	if !okFound {
		return reflect.Value{}, NotFoundInContext
	}

	for _, seg := range path[1:] {
		v, ok := lookupSegment(cur, seg)
		if !ok {
			return reflect.Value{}, ChainBroken
		}
		cur = v
	}
	return cur, Field
}

// lookupSegment resolves a single segment, accepting either a name
// (struct field / map key / method) or a non-negative integer index into
// a list-shaped value.
func lookupSegment(v reflect.Value, seg string) (reflect.Value, bool) {
	iv := indirect(v)
	if iv.IsValid() {
		switch iv.Kind() {
		case reflect.Slice, reflect.Array:
			if n, err := strconv.Atoi(seg); err == nil {
				if n < 0 || n >= iv.Len() {
					return reflect.Value{}, false
				}
				return iv.Index(n), true
			}
		}
	}
	return lookupOne(v, seg)
}

// Get implements Context.Get.
func (c *NativeContext) Get(path []string) Resolution {
	v, kind := c.resolve(path)
	switch kind {
	case NotFoundInContext:
		return notFound()
	case ChainBroken:
		return chainBroken()
	}
	if fn, ok := isLambdaValue(indirect(v)); ok {
		return lambdaRes(&lambdaHolder{fn: fn, ctx: c})
	}
	return found(c.push(v))
}

// lambdaHolder wraps a resolved LambdaFunc value so it can travel through
// Resolution.Value as a Context (only ExpandLambda on it is meaningful).
type lambdaHolder struct {
	fn  lambdaInvoker
	ctx *NativeContext
}

func (l *lambdaHolder) Get([]string) Resolution              { return notFound() }
func (l *lambdaHolder) Iterator([]string) Resolution          { return notFound() }
func (l *lambdaHolder) CapacityHint([]string) int             { return 0 }
func (l *lambdaHolder) Interpolate([]string, func([]byte) []byte, Writer) (bool, error) {
	return false, nil
}
func (l *lambdaHolder) ExpandLambda(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error) {
	render := func(text string) (string, error) {
		var buf strings.Builder
		if err := l.ctx.reparse(text, delims, l.ctx, wrapStringBuilder(&buf)); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	out, err := l.fn(innerText, render)
	if err != nil {
		return true, err
	}
	if out == "" {
		return true, nil
	}
	dst := w
	if escape != nil {
		dst = escapingWriter{w: w, escape: escape}
	}
	if err := l.ctx.reparse(out, delims, l.ctx, dst); err != nil {
		return true, err
	}
	return true, nil
}

type stringBuilderWriter struct{ b *strings.Builder }

func wrapStringBuilder(b *strings.Builder) Writer { return stringBuilderWriter{b: b} }
func (s stringBuilderWriter) Write(p []byte) (int, error) { return s.b.Write(p) }

// Iterator implements Context.Iterator.
func (c *NativeContext) Iterator(path []string) Resolution {
	v, kind := c.resolve(path)
	switch kind {
	case NotFoundInContext:
		return notFound()
	case ChainBroken:
		return chainBroken()
	}
	iv := indirect(v)
	if fn, ok := isLambdaValue(iv); ok {
		return lambdaRes(&lambdaHolder{fn: fn, ctx: c})
	}
	if isEmptyValue(v) {
		return Resolution{Kind: IteratorConsumed, Iter: emptyIterator{}}
	}
	switch iv.Kind() {
	case reflect.Slice, reflect.Array:
		return Resolution{Kind: Field, Iter: &sliceIterator{v: iv, ctx: c}}
	case reflect.Map, reflect.Struct:
		return Resolution{Kind: Field, Iter: &singleIterator{v: v, ctx: c}}
	default:
		return Resolution{Kind: Field, Iter: &singleIterator{v: c.stack[len(c.stack)-1], ctx: c, useParent: len(path) == 0}}
	}
}

type emptyIterator struct{}

func (emptyIterator) Next() (Context, bool) { return nil, false }

type sliceIterator struct {
	v   reflect.Value
	ctx *NativeContext
	i   int
}

func (s *sliceIterator) Next() (Context, bool) {
	if s.i >= s.v.Len() {
		return nil, false
	}
	item := s.v.Index(s.i)
	s.i++
	return s.ctx.push(item), true
}

// singleIterator yields exactly one context: either the resolved value
// (map/struct truthy section) or, for a scalar truthy value, the
// enclosing frame unchanged (spec.md §4.5: "a non-list truthy value
// becomes a single-item iterator" over itself for maps/structs, but a
// bare scalar truthy value re-uses the current context, matching the
// teacher's renderSection default case).
type singleIterator struct {
	v         reflect.Value
	ctx       *NativeContext
	useParent bool
	done      bool
}

func (s *singleIterator) Next() (Context, bool) {
	if s.done {
		return nil, false
	}
	s.done = true
	if s.useParent {
		return s.ctx, true
	}
	return s.ctx.push(s.v), true
}

// CapacityHint implements Context.CapacityHint.
func (c *NativeContext) CapacityHint(path []string) int {
	v, kind := c.resolve(path)
	if kind != Field {
		return 0
	}
	iv := indirect(v)
	switch iv.Kind() {
	case reflect.String:
		return iv.Len()
	case reflect.Slice, reflect.Array, reflect.Map:
		return iv.Len() * 16
	}
	return 8
}

// Interpolate implements Context.Interpolate.
func (c *NativeContext) Interpolate(path []string, escape func([]byte) []byte, w Writer) (bool, error) {
	v, kind := c.resolve(path)
	if kind != Field {
		return false, nil
	}
	iv := indirect(v)
	if !iv.IsValid() {
		return true, nil
	}
	if _, ok := isLambdaValue(iv); ok {
		return false, nil
	}
	s := fmt.Sprint(iv.Interface())
	b := []byte(s)
	if escape != nil {
		b = escape(b)
	}
	_, err := w.Write(b)
	return true, err
}

// ExpandLambda implements Context.ExpandLambda for the interpolation-site
// (path resolves directly to a lambda) case; section-site lambda
// expansion goes through Get returning a lambdaHolder instead, since the
// renderer needs the Resolution.Kind == Lambda signal before it knows
// whether to iterate or expand.
func (c *NativeContext) ExpandLambda(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error) {
	v, kind := c.resolve(path)
	if kind != Field {
		return false, nil
	}
	fn, ok := isLambdaValue(indirect(v))
	if !ok {
		return false, nil
	}
	h := &lambdaHolder{fn: fn, ctx: c}
	return h.ExpandLambda(nil, innerText, escape, delims, w)
}
