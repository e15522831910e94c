package mustache

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"

	"github.com/partario/mustache/internal/ast"
	"github.com/partario/mustache/internal/delim"
	"github.com/partario/mustache/internal/parse"
	"github.com/partario/mustache/internal/render"
)

// AllowMissingVariables defines the behavior for a variable "miss." If it
// is true (the default), an empty string is emitted. If it is false, an
// error is generated instead. It combines with Options.ContextMissesFail
// on the Options-accepting entry points: a miss is an error if either this
// is false or ContextMissesFail is true.
var AllowMissingVariables = true

// ParseError is returned when parsing a template fails.
type ParseError struct {
	Line    int
	Column  int
	Kind    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s (%s)", e.Line, e.Column, e.Message, e.Kind)
}

func wrapParseErr(err error) error {
	if pe, ok := err.(*parse.Error); ok {
		return &ParseError{Line: pe.Line, Column: pe.Col, Kind: pe.Kind.String(), Message: pe.Message}
	}
	return err
}

// Template represents a compiled mustache template: a parsed element
// sequence plus enough context (delimiters, options, partial provider) to
// render it, or to re-parse a lambda's returned text under the same
// rules.
type Template struct {
	elems    []ast.Element
	delims   delim.Pair
	opts     Options
	provider PartialProvider
}

func buildParseOptions(opts Options, copyStrings bool) parse.Options {
	return parse.Options{
		AllowRedefineDelimiters:          !opts.DisallowRedefineDelimiters,
		PreserveLineBreaksAndIndentation: opts.PreserveLineBreaksAndIndentation,
		Lambdas:                          !opts.DisableLambdas,
		CopyStrings:                      copyStrings,
	}
}

func delimsFromOptions(opts Options) delim.Pair {
	if opts.StartDelimiter != "" || opts.EndDelimiter != "" {
		return delim.Pair{Start: opts.StartDelimiter, End: opts.EndDelimiter}
	}
	return delim.Default
}

// ParseStringOptions compiles a mustache template string under opts,
// resolving any partials it references through provider (nil is fine; an
// unresolved partial simply renders as empty).
func ParseStringOptions(data string, provider PartialProvider, opts Options) (*Template, error) {
	delims := delimsFromOptions(opts)
	p := parse.New([]byte(data), delims, buildParseOptions(opts, false))
	elems, err := p.Parse()
	if err != nil {
		return nil, wrapParseErr(err)
	}
	return &Template{elems: elems, delims: delims, opts: opts, provider: provider}, nil
}

// ParseString compiles a mustache template string with default options.
func ParseString(data string) (*Template, error) {
	return ParseStringOptions(data, nil, Options{})
}

// ParseStringPartials compiles a mustache template string, retrieving any
// required partials from the given provider.
func ParseStringPartials(data string, partials PartialProvider) (*Template, error) {
	return ParseStringOptions(data, partials, Options{})
}

// ParseFileOptions loads a mustache template from a file and compiles it
// under opts, using provider (possibly nil) to resolve partials. When
// provider is nil, partials are looked up relative to the template's own
// directory.
func ParseFileOptions(filename string, provider PartialProvider, opts Options) (*Template, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		dir, _ := path.Split(filename)
		provider = &FileProvider{Paths: []string{dir}}
	}
	delims := delimsFromOptions(opts)
	p := parse.New(data, delims, buildParseOptions(opts, true))
	elems, err := p.Parse()
	if err != nil {
		return nil, wrapParseErr(err)
	}
	return &Template{elems: elems, delims: delims, opts: opts, provider: provider}, nil
}

// ParseFile loads a mustache template string from a file and compiles it.
func ParseFile(filename string) (*Template, error) {
	return ParseFileOptions(filename, nil, Options{})
}

// ParseFilePartials loads a mustache template string from a file,
// retrieving any required partials from the given provider, and compiles
// it.
func ParseFilePartials(filename string, partials PartialProvider) (*Template, error) {
	return ParseFileOptions(filename, partials, Options{})
}

func (tmpl *Template) renderOptions() render.Options {
	fail := tmpl.opts.ContextMissesFail || !AllowMissingVariables
	return render.Options{ContextMissesFail: fail, MaxRecursion: tmpl.opts.MaxRecursion}
}

// resolvedPartials walks elems, and transitively every partial it pulls
// in, collecting each reachable partial/parent key and resolving it
// through provider exactly once. internal/render.Renderer expects one
// flat, pre-resolved table rather than calling back into an I/O-capable
// provider mid-render.
func resolvedPartials(elems []ast.Element, provider PartialProvider) (render.Partials, error) {
	out := render.Partials{}
	if provider == nil {
		return out, nil
	}
	seen := map[string]bool{}
	queue := partialKeys(elems, nil)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		t, err := provider.Get(name)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		out[name] = t.elems
		queue = partialKeys(t.elems, queue)
	}
	return out, nil
}

func partialKeys(elems []ast.Element, into []string) []string {
	i := 0
	for i < len(elems) {
		el := elems[i]
		if el.Type == ast.Partial || el.Type == ast.Parent {
			into = append(into, el.Key)
		}
		switch el.Type {
		case ast.Section, ast.InvertedSection, ast.Parent, ast.Block:
			i += 1 + el.ChildrenCount
		default:
			i++
		}
	}
	return into
}

// reparseFunc builds the ReparseRender callback a Context adapter calls
// to re-enter the engine for lambda output, sharing this render's
// Renderer instance so partials, indentation state and the recursion
// depth counter stay consistent across the re-entry.
func reparseFunc(r *render.Renderer, opts Options) render.ReparseRender {
	return func(src string, delims delim.Pair, ctx render.Context, w render.Writer) error {
		p := parse.New([]byte(src), delims, buildParseOptions(opts, false))
		elems, err := p.Parse()
		if err != nil {
			return wrapParseErr(err)
		}
		return r.Render(elems, ctx, w)
	}
}

// FRender uses the given data source(s) — generally a map or struct — to
// render the compiled template to an io.Writer. Earlier arguments take
// precedence over later ones on a name collision.
func (tmpl *Template) FRender(out io.Writer, context ...interface{}) error {
	partials, err := resolvedPartials(tmpl.elems, tmpl.provider)
	if err != nil {
		return err
	}
	r := render.New(partials, tmpl.renderOptions())
	ctx := render.NewNativeContextChain(context, reparseFunc(r, tmpl.opts))
	return r.Render(tmpl.elems, ctx, out)
}

// Render uses the given data source(s) to render the compiled template
// and return the output.
func (tmpl *Template) Render(context ...interface{}) (string, error) {
	var buf bytes.Buffer
	err := tmpl.FRender(&buf, context...)
	return buf.String(), err
}

// FRenderInLayout uses the given data source(s) to render the compiled
// template and a layout "wrapper" template to an io.Writer. The rendered
// content is made available to the layout as {{content}}.
func (tmpl *Template) FRenderInLayout(out io.Writer, layout *Template, context ...interface{}) error {
	content, err := tmpl.Render(context...)
	if err != nil {
		return err
	}
	allContext := make([]interface{}, 0, len(context)+1)
	allContext = append(allContext, map[string]string{"content": content})
	allContext = append(allContext, context...)
	return layout.FRender(out, allContext...)
}

// RenderInLayout uses the given data source(s) to render the compiled
// template and layout "wrapper" template and return the output.
func (tmpl *Template) RenderInLayout(layout *Template, context ...interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.FRenderInLayout(&buf, layout, context...); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderStream parses data under opts and renders it directly to out in
// streaming (bounded-memory) mode: the parser hands the renderer
// contiguous element batches as it goes instead of materializing the
// full sequence first. Partials are not available in streaming mode,
// since resolving them requires the full, pre-parsed element sequence
// this mode deliberately never builds.
func RenderStream(out io.Writer, data string, opts Options, context ...interface{}) error {
	delims := delimsFromOptions(opts)
	r := render.New(nil, render.Options{
		ContextMissesFail: opts.ContextMissesFail || !AllowMissingVariables,
		MaxRecursion:      opts.MaxRecursion,
	})
	ctx := render.NewNativeContextChain(context, reparseFunc(r, opts))

	var renderErr error
	popts := buildParseOptions(opts, false)
	popts.Sink = func(batch []ast.Element) error {
		if err := r.Render(batch, ctx, out); err != nil {
			renderErr = err
			return err
		}
		return nil
	}
	p := parse.New([]byte(data), delims, popts)
	if _, err := p.Parse(); err != nil {
		if renderErr != nil {
			return renderErr
		}
		return wrapParseErr(err)
	}
	return renderErr
}

// RenderFileStream streams filename's contents through the reader-backed
// scanner, bounding memory use for templates too large to hold whole.
func RenderFileStream(out io.Writer, filename string, opts Options, context ...interface{}) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	delims := delimsFromOptions(opts)
	r := render.New(nil, render.Options{
		ContextMissesFail: opts.ContextMissesFail || !AllowMissingVariables,
		MaxRecursion:      opts.MaxRecursion,
	})
	ctx := render.NewNativeContextChain(context, reparseFunc(r, opts))

	var renderErr error
	popts := buildParseOptions(opts, true)
	popts.Sink = func(batch []ast.Element) error {
		if err := r.Render(batch, ctx, out); err != nil {
			renderErr = err
			return err
		}
		return nil
	}
	p := parse.NewFromReader(f, opts.ChunkSize, delims, popts)
	if _, err := p.Parse(); err != nil {
		if renderErr != nil {
			return renderErr
		}
		return wrapParseErr(err)
	}
	return renderErr
}

// Render compiles a mustache template string and uses the given data
// source(s) to render the template and return the output.
func Render(data string, context ...interface{}) (string, error) {
	return RenderPartials(data, nil, context...)
}

// RenderPartials compiles a mustache template string and uses the given
// partial provider and data source(s) to render the template and return
// the output.
func RenderPartials(data string, partials PartialProvider, context ...interface{}) (string, error) {
	tmpl, err := ParseStringPartials(data, partials)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// RenderInLayout compiles a mustache template string and layout
// "wrapper" string and uses the given data source(s) to render the
// compiled templates and return the output.
func RenderInLayout(data string, layoutData string, context ...interface{}) (string, error) {
	return RenderInLayoutPartials(data, layoutData, nil, context...)
}

// RenderInLayoutPartials compiles a mustache template string and layout
// "wrapper" string (both resolved against the same partial provider) and
// uses the given data source(s) to render the compiled templates and
// return the output.
func RenderInLayoutPartials(data string, layoutData string, partials PartialProvider, context ...interface{}) (string, error) {
	layoutTmpl, err := ParseStringPartials(layoutData, partials)
	if err != nil {
		return "", err
	}
	tmpl, err := ParseStringPartials(data, partials)
	if err != nil {
		return "", err
	}
	return tmpl.RenderInLayout(layoutTmpl, context...)
}

// RenderFile loads a mustache template string from a file and compiles
// it, then uses the given data source(s) to render the template and
// return the output.
func RenderFile(filename string, context ...interface{}) (string, error) {
	tmpl, err := ParseFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.Render(context...)
}

// RenderFileInLayout loads a mustache template string and layout
// "wrapper" template string from files and compiles them, then uses the
// given data source(s) to render the compiled templates and return the
// output.
func RenderFileInLayout(filename string, layoutFile string, context ...interface{}) (string, error) {
	layoutTmpl, err := ParseFile(layoutFile)
	if err != nil {
		return "", err
	}
	tmpl, err := ParseFile(filename)
	if err != nil {
		return "", err
	}
	return tmpl.RenderInLayout(layoutTmpl, context...)
}
