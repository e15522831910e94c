package render

import (
	"strings"
	"testing"

	"github.com/partario/mustache/internal/delim"
	"github.com/partario/mustache/internal/parse"
)

// reparseForTest builds a ReparseRender usable from this package's tests,
// parsing src under the given delimiters and lambda support enabled, then
// rendering it with a fresh Renderer sharing ctx/partials.
func reparseForTest(partials Partials) ReparseRender {
	return func(src string, delims delim.Pair, ctx Context, w Writer) error {
		elems, err := parse.New([]byte(src), delims, parse.Options{Lambdas: true}).Parse()
		if err != nil {
			return err
		}
		return New(partials, Options{}).Render(elems, ctx, w)
	}
}

func renderString(t *testing.T, src string, ctx interface{}) string {
	t.Helper()
	elems, err := parse.New([]byte(src), delim.Default, parse.Options{Lambdas: true}).Parse()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	native := NewNativeContext(ctx, reparseForTest(nil))
	var sb strings.Builder
	if err := New(nil, Options{}).Render(elems, native, wrapStringBuilder(&sb)); err != nil {
		t.Fatalf("render %q: %v", src, err)
	}
	return sb.String()
}

func TestRenderBasicInterpolation(t *testing.T) {
	got := renderString(t, "hello {{name}}", map[string]string{"name": "world"})
	if got != "hello world" {
		t.Errorf("got %q, want %q", got, "hello world")
	}
}

func TestRenderEscapesByDefault(t *testing.T) {
	got := renderString(t, "{{v}}", map[string]string{"v": "5 > 2"})
	if got != "5 &gt; 2" {
		t.Errorf("got %q, want %q", got, "5 &gt; 2")
	}
}

func TestRenderUnescapedTriple(t *testing.T) {
	got := renderString(t, "{{{v}}}", map[string]string{"v": "5 > 2"})
	if got != "5 > 2" {
		t.Errorf("got %q, want %q", got, "5 > 2")
	}
}

func TestRenderSectionIteratesSlice(t *testing.T) {
	got := renderString(t, "{{#items}}({{.}}){{/items}}", map[string]interface{}{
		"items": []string{"a", "b", "c"},
	})
	if got != "(a)(b)(c)" {
		t.Errorf("got %q, want %q", got, "(a)(b)(c)")
	}
}

func TestRenderInvertedSection(t *testing.T) {
	got := renderString(t, "{{^empty}}shown{{/empty}}", map[string]interface{}{"empty": []string{}})
	if got != "shown" {
		t.Errorf("got %q, want %q", got, "shown")
	}
	got = renderString(t, "{{^full}}hidden{{/full}}", map[string]interface{}{"full": []string{"x"}})
	if got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

// testLambda mirrors the shape isLambdaValue matches structurally (the
// root package's LambdaFunc), without importing the root package, which
// would cycle.
type testLambda func(text string, render func(string) (string, error)) (string, error)

// TestLambdaInterpolationIsEscaped is the regression test for the
// interpolation-site lambda escaping fix: {{lambda}} must HTML-escape the
// lambda's re-rendered output, while {{{lambda}}} must not.
func TestLambdaInterpolationIsEscaped(t *testing.T) {
	lambda := testLambda(func(text string, render func(string) (string, error)) (string, error) {
		return ">", nil
	})
	got := renderString(t, "<{{wrap}}>", map[string]interface{}{"wrap": lambda})
	if got != "<&gt;>" {
		t.Errorf("escaped interpolation-site lambda: got %q, want %q", got, "<&gt;>")
	}

	got = renderString(t, "<{{{wrap}}}>", map[string]interface{}{"wrap": lambda})
	if got != "<>>" {
		t.Errorf("unescaped interpolation-site lambda: got %q, want %q", got, "<>>")
	}
}

// TestLambdaSectionIsNotEscaped covers the complementary case: a
// section-site lambda's re-rendered output is never escaped, since it is
// markup the lambda author controls, not an interpolated value.
func TestLambdaSectionIsNotEscaped(t *testing.T) {
	lambda := testLambda(func(text string, render func(string) (string, error)) (string, error) {
		out, err := render(text)
		if err != nil {
			return "", err
		}
		return "<b>" + out + "</b>", nil
	})
	got := renderString(t, "{{#wrap}}5 > 2{{/wrap}}", map[string]interface{}{"wrap": lambda})
	if got != "<b>5 > 2</b>" {
		t.Errorf("got %q, want %q", got, "<b>5 > 2</b>")
	}
}

func TestRenderParentBlockOverride(t *testing.T) {
	base := []byte(`<{{$title}}Default{{/title}}>`)
	baseElems, err := parse.New(base, delim.Default, parse.Options{}).Parse()
	if err != nil {
		t.Fatalf("parse base: %v", err)
	}
	partials := Partials{"base": baseElems}

	tmpl := []byte(`{{<base}}{{$title}}Override{{/title}}{{/base}}`)
	elems, err := parse.New(tmpl, delim.Default, parse.Options{}).Parse()
	if err != nil {
		t.Fatalf("parse tmpl: %v", err)
	}
	native := NewNativeContext(map[string]string{}, reparseForTest(partials))
	var sb strings.Builder
	if err := New(partials, Options{}).Render(elems, native, wrapStringBuilder(&sb)); err != nil {
		t.Fatalf("render: %v", err)
	}
	if sb.String() != "<Override>" {
		t.Errorf("got %q, want %q", sb.String(), "<Override>")
	}
}

func TestRenderContextMissesFail(t *testing.T) {
	elems, err := parse.New([]byte("{{missing}}"), delim.Default, parse.Options{}).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	native := NewNativeContext(map[string]string{}, reparseForTest(nil))
	var sb strings.Builder
	err = New(nil, Options{ContextMissesFail: true}).Render(elems, native, wrapStringBuilder(&sb))
	if err == nil {
		t.Fatal("expected a MissingContextError")
	}
	if _, ok := err.(*MissingContextError); !ok {
		t.Errorf("got %T, want *MissingContextError", err)
	}
}
