package http

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"cashbook/internal/middleware/security"
)

// spaHandler serves the built front end from dist. Paths that are not files
// get index.html so that client-side routes survive a reload; /api paths
// never do.
func spaHandler(dist fs.FS) http.Handler {
	files := http.FileServerFS(dist)
	assets := security.StaticAssetMiddleware(31536000)(files)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" && name != "index.html" {
			if info, err := fs.Stat(dist, name); err == nil && !info.IsDir() {
				if strings.HasPrefix(name, "assets/") {
					assets.ServeHTTP(w, r)
					return
				}
				files.ServeHTTP(w, r)
				return
			}
		}
		serveIndex(w, r, dist)
	})
}

func serveIndex(w http.ResponseWriter, r *http.Request, dist fs.FS) {
	index, err := fs.ReadFile(dist, "index.html")
	if err != nil {
		WriteError(w, http.StatusNotFound, "Front end not built")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(index)
	}
}
