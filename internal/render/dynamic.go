package render

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/partario/mustache/internal/delim"
)

// DynamicContext adapts a JSON-shaped value tree (map[string]interface{},
// []interface{}, and scalars) to Context, generalized from
// weese-mustachio's MapProvider/lookupInContext: instead of that adapter's
// plain (value, bool) pair, every lookup returns the full Resolution sum
// (field/lambda/chain_broken/not_found_in_context) so the renderer treats
// it identically to NativeContext.
type DynamicContext struct {
	stack   []interface{}
	reparse ReparseRender
}

// NewDynamicContext seeds a context stack with a single root value,
// typically the result of a JSON/YAML unmarshal.
func NewDynamicContext(root interface{}, reparse ReparseRender) *DynamicContext {
	return &DynamicContext{stack: []interface{}{root}, reparse: reparse}
}

func (c *DynamicContext) push(v interface{}) *DynamicContext {
	ns := make([]interface{}, len(c.stack)+1)
	copy(ns, c.stack)
	ns[len(ns)-1] = v
	return &DynamicContext{stack: ns, reparse: c.reparse}
}

func dynLookupOne(v interface{}, seg string) (interface{}, bool) {
	switch tv := v.(type) {
	case map[string]interface{}:
		val, ok := tv[seg]
		return val, ok
	case map[interface{}]interface{}: // yaml.v2 default map shape
		val, ok := tv[seg]
		return val, ok
	case []interface{}:
		if seg == "len" {
			return len(tv), true
		}
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 && n < len(tv) {
			return tv[n], true
		}
		return nil, false
	case string:
		if seg == "len" {
			return len(tv), true
		}
		return nil, false
	default:
		return nil, false
	}
}

func (c *DynamicContext) resolve(path []string) (interface{}, ResolutionKind) {
	if len(path) == 0 {
		if len(c.stack) == 0 {
			return nil, NotFoundInContext
		}
		return c.stack[len(c.stack)-1], Field
	}
	var cur interface{}
	found := false
	for i := len(c.stack) - 1; i >= 0; i-- {
		if v, ok := dynLookupOne(c.stack[i], path[0]); ok {
			cur = v
			found = true
			break
		}
	}
	if !found {
		return nil, NotFoundInContext
	}
	for _, seg := range path[1:] {
		v, ok := dynLookupOne(cur, seg)
		if !ok {
			return nil, ChainBroken
		}
		cur = v
	}
	return cur, Field
}

func dynIsEmpty(v interface{}) bool {
	switch tv := v.(type) {
	case nil:
		return true
	case bool:
		return !tv
	case string:
		return tv == ""
	case []interface{}:
		return len(tv) == 0
	case map[string]interface{}:
		return len(tv) == 0
	}
	return false
}

// dynAsLambda delegates to native.go's structural reflect-based
// isLambdaValue, since a value stored in a map[string]interface{} tree
// carries the same named-type-identity problem as a struct field: the
// root package's LambdaFunc can only be recognized by shape here, never
// by type identity (importing it would cycle).
func dynAsLambda(v interface{}) (lambdaInvoker, bool) {
	if v == nil {
		return nil, false
	}
	return isLambdaValue(reflect.ValueOf(v))
}

// Get implements Context.Get.
func (c *DynamicContext) Get(path []string) Resolution {
	v, kind := c.resolve(path)
	switch kind {
	case NotFoundInContext:
		return notFound()
	case ChainBroken:
		return chainBroken()
	}
	if fn, ok := dynAsLambda(v); ok {
		return lambdaRes(&dynLambdaHolder{fn: fn, ctx: c})
	}
	return found(c.push(v))
}

type dynLambdaHolder struct {
	fn  lambdaInvoker
	ctx *DynamicContext
}

func (l *dynLambdaHolder) Get([]string) Resolution { return notFound() }
func (l *dynLambdaHolder) Iterator([]string) Resolution { return notFound() }
func (l *dynLambdaHolder) CapacityHint([]string) int { return 0 }
func (l *dynLambdaHolder) Interpolate([]string, func([]byte) []byte, Writer) (bool, error) {
	return false, nil
}
func (l *dynLambdaHolder) ExpandLambda(_ []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error) {
	render := func(text string) (string, error) {
		var sb strings.Builder
		if err := l.ctx.reparse(text, delims, l.ctx, wrapStringBuilder(&sb)); err != nil {
			return "", err
		}
		return sb.String(), nil
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
	return true, l.ctx.reparse(out, delims, l.ctx, dst)
}

// Iterator implements Context.Iterator.
func (c *DynamicContext) Iterator(path []string) Resolution {
	v, kind := c.resolve(path)
	switch kind {
	case NotFoundInContext:
		return notFound()
	case ChainBroken:
		return chainBroken()
	}
	if fn, ok := dynAsLambda(v); ok {
		return lambdaRes(&dynLambdaHolder{fn: fn, ctx: c})
	}
	if dynIsEmpty(v) {
		return Resolution{Kind: IteratorConsumed, Iter: emptyIterator{}}
	}
	if list, ok := v.([]interface{}); ok {
		return Resolution{Kind: Field, Iter: &dynSliceIterator{list: list, ctx: c}}
	}
	switch v.(type) {
	case map[string]interface{}, map[interface{}]interface{}:
		return Resolution{Kind: Field, Iter: &dynSingleIterator{v: v, ctx: c}}
	default:
		return Resolution{Kind: Field, Iter: &dynSingleIterator{v: c.stack[len(c.stack)-1], ctx: c, useParent: len(path) == 0}}
	}
}

type dynSliceIterator struct {
	list []interface{}
	ctx  *DynamicContext
	i    int
}

func (s *dynSliceIterator) Next() (Context, bool) {
	if s.i >= len(s.list) {
		return nil, false
	}
	v := s.list[s.i]
	s.i++
	return s.ctx.push(v), true
}

type dynSingleIterator struct {
	v         interface{}
	ctx       *DynamicContext
	useParent bool
	done      bool
}

func (s *dynSingleIterator) Next() (Context, bool) {
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
func (c *DynamicContext) CapacityHint(path []string) int {
	v, kind := c.resolve(path)
	if kind != Field {
		return 0
	}
	switch tv := v.(type) {
	case string:
		return len(tv)
	case []interface{}:
		return len(tv) * 16
	case map[string]interface{}:
		return len(tv) * 16
	}
	return 8
}

// Interpolate implements Context.Interpolate.
func (c *DynamicContext) Interpolate(path []string, escape func([]byte) []byte, w Writer) (bool, error) {
	v, kind := c.resolve(path)
	if kind != Field {
		return false, nil
	}
	if v == nil {
		return true, nil
	}
	if _, ok := dynAsLambda(v); ok {
		return false, nil
	}
	s := fmt.Sprint(v)
	b := []byte(s)
	if escape != nil {
		b = escape(b)
	}
	_, err := w.Write(b)
	return true, err
}

// ExpandLambda implements Context.ExpandLambda for the interpolation-site
// case.
func (c *DynamicContext) ExpandLambda(path []string, innerText string, escape func([]byte) []byte, delims delim.Pair, w Writer) (bool, error) {
	v, kind := c.resolve(path)
	if kind != Field {
		return false, nil
	}
	fn, ok := dynAsLambda(v)
	if !ok {
		return false, nil
	}
	h := &dynLambdaHolder{fn: fn, ctx: c}
	return h.ExpandLambda(nil, innerText, escape, delims, w)
}
