// Package web embeds the browser player: the page template and its static
// script and stylesheet.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var assets embed.FS

// Static returns the files served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// only possible if the embed pattern above changes
		panic("web: static assets missing: " + err.Error())
	}
	return sub
}

// Templates parses the page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(assets, "templates/*.html")
}
