package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	cases := map[string]bool{
		"/health":                  true,
		"/metrics":                 true,
		"/api/user/login":          true,
		"/api/user/register":       true,
		"/api/admin/login":         true,
		"/api/doctor/login":        true,
		"/api/doctor/list":         true,
		"/api/appointment/slots":   true,
		"/api/appointment/book":    false,
		"/api/appointment/cancel":  false,
		"/api/admin/dashboard":     false,
		"/api/user/appointments":   false,
		"/api/doctor/appointments": false,
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		if got := AuthSkipper(c); got != want {
			t.Errorf("AuthSkipper(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health/db") {
		t.Error("expected /health/db to be public")
	}
	if IsPublicPath("/api/admin/add-doctor") {
		t.Error("expected /api/admin/add-doctor to be protected")
	}
}
