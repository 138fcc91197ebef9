// Package web holds the server-rendered dashboard pages.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page and partial. Page templates are addressed by file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(files, "templates/*.html")
}

func Funcs() template.FuncMap {
	return template.FuncMap{
		"json": func(v any) (template.JS, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(raw), nil
		},
		"clock": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.UTC().Format("15:04:05")
		},
	}
}
