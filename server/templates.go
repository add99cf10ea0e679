// Package server contains the HTTP server setup and template management.
package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"projdash/models"
)

// Templates wraps the compiled page template sets.
type Templates struct {
	dashboard *template.Template
}

// LoadTemplates parses all templates from fsys, which must hold base.html
// and one file per page. Each page gets its own template.Template cloned
// from base so that {{define "content"}} blocks don't collide.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	base, err := template.New("").ParseFS(fsys, "base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base: %w", err)
	}

	dash, err := cloneAndParse(base, fsys, "dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}

	return &Templates{dashboard: dash}, nil
}

// loadTemplatesFromDisk loads templates directly from a directory.
// Used in tests where the embedded FS is not available.
func loadTemplatesFromDisk(dir string) (*Templates, error) {
	return LoadTemplates(os.DirFS(dir))
}

// cloneAndParse clones a base template set and adds one more file from an fs.FS.
func cloneAndParse(base *template.Template, fsys fs.FS, name string) (*template.Template, error) {
	t, err := base.Clone()
	if err != nil {
		return nil, err
	}
	return t.ParseFS(fsys, name)
}

// ExecuteDashboard renders the dashboard page.
func (t *Templates) ExecuteDashboard(w http.ResponseWriter, data *models.Dashboard) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return t.dashboard.ExecuteTemplate(w, "base", data)
}
