package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
)

// RequireRole admits sessions holding one of roles. Admin passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authorized, login again")
			}
			if s.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if s.Role == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// CurrentSession returns the request's session, or a 401 for handlers reached
// without one.
func CurrentSession(c echo.Context) (Session, error) {
	s, ok := SessionFromContext(c.Request().Context())
	if !ok {
		return Session{}, echo.NewHTTPError(http.StatusUnauthorized, "not authorized, login again")
	}
	return s, nil
}

// ActingFor returns the id a self-scoped route works on. Doctors and patients
// get their own id; admins must name one with the query parameter.
func ActingFor(c echo.Context, param string) (uuid.UUID, error) {
	s, err := CurrentSession(c)
	if err != nil {
		return uuid.Nil, err
	}
	if !s.IsAdmin() {
		return s.ActorID, nil
	}
	raw := c.QueryParam(param)
	if raw == "" {
		return uuid.Nil, apperr.Invalid(param + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Invalid(param + " must be a valid UUID")
	}
	return id, nil
}
