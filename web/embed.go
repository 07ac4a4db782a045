// Package web embeds the PeopleDesk templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/layouts/*.html templates/pages/*.html templates/partials/*.html
var Templates embed.FS

//go:embed static
var static embed.FS

// Static returns the static asset tree rooted at its top directory, so
// "css/app.css" resolves to web/static/css/app.css.
func Static() (fs.FS, error) {
	return fs.Sub(static, "static")
}
