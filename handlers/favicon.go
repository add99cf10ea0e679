package handlers

import (
	"bytes"
	"io/fs"
	"net/http"
	"time"
)

// FaviconHandler serves favicon.svg from the embedded static tree. The file
// is read once, when the handler is built.
func FaviconHandler(static fs.FS) http.HandlerFunc {
	data, err := fs.ReadFile(static, "favicon.svg")
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, "favicon.svg", time.Time{}, bytes.NewReader(data))
	}
}
