package frontend

import (
	"embed"
	"io/fs"
	"net/http"
)

// dist holds the dashboard build (Vite output). A checkout without a build only carries
// the placeholder index.html.
//
//go:embed all:dist
var dist embed.FS

// GetHTTPFS returns the dashboard build for HTTP serving, or fs.ErrNotExist when
// index.html is missing
func GetHTTPFS() (http.FileSystem, error) {
	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}
