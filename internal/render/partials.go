package render

import "github.com/partario/mustache/internal/ast"

// Partials is the lookup table of named sub-templates (spec.md §4.4 item
// 6/C10): already-parsed element sequences, keyed by the identifier used
// in a partial/parent tag. An unresolved key renders as nothing.
type Partials map[string][]ast.Element
