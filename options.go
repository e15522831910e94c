package mustache

// Options configures parsing and rendering behavior (spec.md §6).
// Passing the zero value behaves like the defaults described per field.
type Options struct {
	// Delimiters overrides the default {{ / }} starting delimiter pair.
	// Both must be set together, or both left empty for the default.
	StartDelimiter, EndDelimiter string

	// DisallowRedefineDelimiters, if true, makes a {{= =}} tag a parse
	// error. Defaults to false: redefinition is allowed (the historical
	// behavior of this library).
	DisallowRedefineDelimiters bool

	// PreserveLineBreaksAndIndentation disables standalone-line trimming
	// when true.
	PreserveLineBreaksAndIndentation bool

	// DisableLambdas skips method/field lambda lookup and section
	// inner-text bookmark capture entirely.
	DisableLambdas bool

	// MaxRecursion bounds lambda re-render nesting; 0 uses the default
	// of 100.
	MaxRecursion int

	// ContextMissesFail selects render.context_misses = fail instead of
	// the default "render as empty".
	ContextMissesFail bool

	// ChunkSize is the file-mode scanner's read buffer size; 0 uses the
	// scanner's default (4 KiB).
	ChunkSize int
}

func (o Options) withDefaults() Options {
	return o
}
