// Package site serves the dashboard's static assets.
package site

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// cacheMaxAge is how long browsers may keep assets.
const cacheMaxAge = time.Hour

// Register attaches GET /static/ to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /static/", NewStaticHandler())
}

// NewStaticHandler serves the embedded assets under /static/.
func NewStaticHandler() http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(FS()))
	maxAge := "public, max-age=" + strconv.Itoa(int(cacheMaxAge.Seconds()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No directory listings.
		if r.URL.Path == "/static/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", maxAge)
		files.ServeHTTP(w, r)
	})
}
