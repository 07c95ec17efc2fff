package main

import (
	"embed"
	"html/template"
	"io/fs"
	"path/filepath"
)

//go:embed site.yaml
var defaultSiteFile []byte

//go:embed content/*.md
var embeddedContent embed.FS

//go:embed templates/*.html
var embeddedTemplates embed.FS

// parseTemplates loads every page template, from dir when set and from the
// embedded copies otherwise.
func parseTemplates(dir string, funcs template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcs)
	if dir != "" {
		return t.ParseGlob(filepath.Join(dir, "*.html"))
	}
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return t.ParseFS(sub, "*.html")
}
