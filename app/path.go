package app

import (
	"path"
	"strings"
)

// cleanPath returns p rooted at "/" with duplicate slashes and dot segments
// removed. A trailing slash survives only for the root.
//
//	cleanPath("")          // "/"
//	cleanPath("users")     // "/users"
//	cleanPath("/docs//x/") // "/docs/x"
func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// joinPath joins a group prefix and a route path.
//
//	joinPath("/users", "/signin") // "/users/signin"
//	joinPath("/", "new")          // "/new"
//	joinPath("/docs", "/")        // "/docs"
func joinPath(prefix, p string) string {
	if p == "" || p == "/" {
		return cleanPath(prefix)
	}
	return cleanPath(strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(p, "/"))
}
