package form

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html static/*
var assets embed.FS

// FS returns an http.FileSystem for the embedded static assets.
func FS() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		return http.FS(assets)
	}
	return http.FS(sub)
}

// pageTemplate is parsed once; a broken template fails at init.
var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"fieldError": func(errs map[string]string, field string) string { return errs[field] },
}).ParseFS(assets, "templates/index.html"))
