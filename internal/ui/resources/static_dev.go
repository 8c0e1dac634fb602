//go:build dev

package resources

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
)

// staticDir locates static/ next to this source file so edits show up
// without a rebuild.
func staticDir() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("internal", "ui", "resources", "static")
	}
	return filepath.Join(filepath.Dir(filename), "static")
}

// Handler serves the assets from the source tree.
func Handler() http.Handler {
	return http.StripPrefix(StaticPrefix, http.FileServer(http.FS(os.DirFS(staticDir()))))
}
