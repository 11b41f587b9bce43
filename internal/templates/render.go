// Package templates renders the HTML page and the fragments patched into it
// over Datastar SSE.
package templates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"
)

var funcMap = template.FuncMap{
	// dict builds a map from key-value pairs for nested templates.
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"json": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
	"minutes": func(v float64) string {
		return fmt.Sprintf("%g min", v)
	},
	"inc": func(i int) int { return i + 1 },
}

// Renderer holds the parsed templates of one or more directories.
type Renderer struct {
	dirs      []string
	templates *template.Template
	mu        sync.RWMutex
}

// New parses every *.html file in dirs, e.g. web/templates and
// web/templates/fragments.
func New(dirs ...string) (*Renderer, error) {
	tmpl, err := parse(dirs)
	if err != nil {
		return nil, err
	}
	return &Renderer{dirs: dirs, templates: tmpl}, nil
}

func parse(dirs []string) (*template.Template, error) {
	tmpl := template.New("").Funcs(funcMap)
	parsed := 0
	for _, dir := range dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*.html"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
			return nil, err
		}
		parsed += len(matches)
	}
	if parsed == 0 {
		return nil, fmt.Errorf("no templates in %v", dirs)
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.ExecuteTemplate(buf, name, data)
}

// Has reports whether a template is defined.
func (r *Renderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.Lookup(name) != nil
}

// Reload re-parses the templates from disk.
func (r *Renderer) Reload() error {
	tmpl, err := parse(r.dirs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	return nil
}
