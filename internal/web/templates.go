package web

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// Templates manages HTML template rendering for the browse pages.
type Templates struct {
	pages map[string]*template.Template
}

// NewTemplates loads page templates from the given filesystem. Every page
// under pages/ is parsed together with the shared layouts.
func NewTemplates(templatesFS fs.FS) (*Templates, error) {
	layouts, err := fs.Glob(templatesFS, "layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding layouts: %w", err)
	}
	pages, err := fs.Glob(templatesFS, "pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("finding pages: %w", err)
	}

	t := &Templates{pages: make(map[string]*template.Template)}
	for _, page := range pages {
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		files := append([]string{page}, layouts...)
		tmpl, err := template.New(name).Funcs(templateFuncs()).ParseFS(templatesFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// templateFuncs returns the helpers available to every page template.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"years": func(start, end int) []int {
			var ys []int
			for y := start; y <= end; y++ {
				ys = append(ys, y)
			}
			return ys
		},
	}
}

// Render renders a page template inside the base layout.
func (t *Templates) Render(w io.Writer, page string, data any) error {
	tmpl, ok := t.pages[page]
	if !ok {
		return fmt.Errorf("template %q not found", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}
