package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RegisterLogoutRoute registers POST /auth/logout, which revokes the caller's
// current token.
func RegisterLogoutRoute(g *echo.Group, store Revoker) {
	g.POST("/auth/logout", handleLogout(store), RequireRole(RolePatient, RoleDoctor, RoleAdmin))
}

func handleLogout(store Revoker) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, ok := SessionFromContext(c.Request().Context())
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, login again")
		}
		exp := s.ExpiresAt
		if exp.IsZero() {
			exp = time.Now().Add(24 * time.Hour)
		}
		if err := store.Revoke(c.Request().Context(), s.TokenID, exp); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
	}
}
