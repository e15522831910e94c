package mustache

import (
	"os"
	"path"
)

// PartialProvider comprises the behaviors required of a struct to be able to provide partials to the mustache rendering
// engine.
type PartialProvider interface {
	// Get accepts the name of a partial and returns the parsed partial, if it could be found; a valid but empty
	// template, if it could not be found; or nil and error if an error occurred (other than an inability to find
	// the partial).
	Get(name string) (*Template, error)
}

// FileProvider implements the PartialProvider interface by providing partials drawn from a filesystem. When a partial
// named `NAME`  is requested, FileProvider searches each listed path for a file named as `NAME` followed by any of the
// listed extensions. The default for `Paths` is to search the current working directory. The default for `Extensions`
// is to examine, in order, no extension; then ".mustache"; then ".stache".
//
// Resolved templates are cached by filename: resolvedPartials (mustache.go)
// already calls Get once per distinct name within a single template's
// resolution pass, but a FileProvider is commonly shared across many
// ParseFileOptions calls (a CLI or server reusing one provider per
// request), and re-reading/re-parsing the same partial file from disk on
// every call is wasted work the teacher's original provider always paid.
type FileProvider struct {
	Paths      []string
	Extensions []string

	cache map[string]*Template
}

func (fp *FileProvider) Get(name string) (*Template, error) {
	var filename string

	var paths []string
	if fp.Paths != nil {
		paths = fp.Paths
	} else {
		paths = []string{""}
	}

	var exts []string
	if fp.Extensions != nil {
		exts = fp.Extensions
	} else {
		exts = []string{"", ".mustache", ".stache"}
	}

	for _, p := range paths {
		for _, e := range exts {
			name := path.Join(p, name+e)
			f, err := os.Open(name)
			if err == nil {
				filename = name
				f.Close()
				break
			}
		}
	}

	if filename == "" {
		return ParseString("")
	}

	if fp.cache == nil {
		fp.cache = make(map[string]*Template)
	}
	if tmpl, ok := fp.cache[filename]; ok {
		return tmpl, nil
	}

	tmpl, err := ParseFileOptions(filename, fp, Options{})
	if err != nil {
		return nil, err
	}
	fp.cache[filename] = tmpl
	return tmpl, nil
}

var _ PartialProvider = (*FileProvider)(nil)

// StaticProvider implements the PartialProvider interface by providing partials drawn from a map, which maps partial
// name to template contents. Like FileProvider, each distinct name is
// parsed at most once per provider instance; a StaticProvider handed the
// same map of fixtures across many renders (the common case in tests)
// should not reparse a partial's body on every lookup.
type StaticProvider struct {
	Partials map[string]string

	cache map[string]*Template
}

func (sp *StaticProvider) Get(name string) (*Template, error) {
	if sp.Partials == nil {
		return ParseString("")
	}
	data, ok := sp.Partials[name]
	if !ok {
		return ParseString("")
	}

	if sp.cache == nil {
		sp.cache = make(map[string]*Template)
	}
	if tmpl, ok := sp.cache[name]; ok {
		return tmpl, nil
	}

	tmpl, err := ParseStringPartials(data, sp)
	if err != nil {
		return nil, err
	}
	sp.cache[name] = tmpl
	return tmpl, nil
}

var _ PartialProvider = (*StaticProvider)(nil)
