package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupPrefixesAndNesting(t *testing.T) {
	a := New()
	var hits []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(c Ctx) error { hits = append(hits, name); return next(c) }
		}
	}
	users := a.Group("/users", tag("users"))
	users.GET("/signin", func(c Ctx) error { return c.String(http.StatusOK, "signin") })
	users.POST("/signin", func(c Ctx) error { return c.String(http.StatusOK, "posted") })

	admin := users.Group("/admin", tag("admin"))
	admin.Use(tag("late"))
	admin.GET("/", func(c Ctx) error { return c.String(http.StatusOK, "admin") })

	tests := []struct{ method, path, body string }{
		{http.MethodGet, "/users/signin", "signin"},
		{http.MethodPost, "/users/signin", "posted"},
		{http.MethodGet, "/users/admin", "admin"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tt.path)
		assert.Equal(t, tt.body, rec.Body.String())
	}
	assert.Equal(t, []string{"users", "users", "users", "admin", "late"}, hits)
}
