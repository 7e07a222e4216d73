package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are route paths served without a session: probes, metrics,
// login/registration and the public doctor and slot listings.
var publicPaths = map[string]bool{
	"/health":                true,
	"/health/db":             true,
	"/metrics":               true,
	"/api/admin/login":       true,
	"/api/doctor/login":      true,
	"/api/doctor/list":       true,
	"/api/user/register":     true,
	"/api/user/login":        true,
	"/api/appointment/slots": true,
}

// AuthSkipper matches on the registered route path, so path parameters do
// not affect the decision.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
