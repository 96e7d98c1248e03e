// Package web holds the browser front end, embedded into the binary.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates static
var files embed.FS

// Index is the landing page template. Its data is a Page.
var Index = template.Must(template.ParseFS(files, "templates/index.html"))

// Page is the data rendered into Index.
type Page struct {
	Title      string
	MaxSymbols int
}

// Static returns the /static tree (css, js).
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
