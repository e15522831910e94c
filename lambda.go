package mustache

// RenderFunc parses text as a mustache template under the invoking
// section's active delimiters and renders it against the current context
// stack, returning the rendered output.
type RenderFunc func(text string) (string, error)

// LambdaFunc is the value a context field or map entry provides to act as
// a mustache lambda (spec.md §4.6). For a section lambda, text is the
// section's verbatim inner source; for an interpolation-site lambda it is
// empty. render re-enters the template engine to expand a returned
// sub-template, e.g. one embedding further tags.
type LambdaFunc func(text string, render RenderFunc) (string, error)
