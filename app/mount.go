package app

import (
	"io/fs"
	"net/http"
	"strings"
)

// Mount serves h for GET and HEAD requests under prefix, with the prefix
// stripped from the request path. Mounted handlers bypass the middleware chain.
//
// Example:
//
//	a.Mount("/static", http.FileServer(http.FS(assets)))
func (a *DefaultApp) Mount(prefix string, h http.Handler) {
	prefix = cleanPath(prefix)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	stripped := http.StripPrefix(strings.TrimSuffix(prefix, "/"), h)
	a.router.Handler(http.MethodGet, prefix+"*filepath", stripped)
	a.router.Handler(http.MethodHead, prefix+"*filepath", stripped)
}

// StaticFS serves files from fsys under prefix. Directory listings are
// refused with 404.
func (a *DefaultApp) StaticFS(prefix string, fsys fs.FS) {
	a.Mount(prefix, http.FileServer(noListingFS{http.FS(fsys)}))
}

// noListingFS hides directories from http.FileServer.
type noListingFS struct{ fs http.FileSystem }

func (n noListingFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fs.ErrNotExist
	}
	return f, nil
}
