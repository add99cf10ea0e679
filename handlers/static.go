package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// noListingFS hides directories that have no index.html, so http.FileServer
// answers 404 instead of generating a listing.
type noListingFS struct {
	fs.FS
}

func (n noListingFS) Open(name string) (fs.File, error) {
	f, err := n.FS.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if !info.IsDir() {
		return f, nil
	}
	idx, err := n.FS.Open(path.Join(name, "index.html"))
	if err != nil {
		f.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fs.ErrNotExist
		}
		return nil, err
	}
	idx.Close()
	return f, nil
}

// StaticHandler serves files from root. It is the delegate for both
// rewritten project routes and unmatched paths. Directory listings are only
// generated when listing is true.
func StaticHandler(root string, listing bool) http.Handler {
	return staticHandlerFS(os.DirFS(root), listing)
}

func staticHandlerFS(fsys fs.FS, listing bool) http.Handler {
	if !listing {
		fsys = noListingFS{fsys}
	}
	files := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// FileServer keeps a Content-Type that is already set.
		if t := mimeForName(r.URL.Path); t != "" {
			w.Header().Set("Content-Type", t)
		}
		files.ServeHTTP(w, r)
	})
}
