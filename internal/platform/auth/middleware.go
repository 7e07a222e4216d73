package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "session"

// Session identifies the authenticated caller of a request.
type Session struct {
	ActorID   uuid.UUID
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// legacyTokenHeaders are the headers older clients send the raw token in,
// one per console (patient, admin, doctor).
var legacyTokenHeaders = []string{"token", "atoken", "dtoken"}

type JWTConfig struct {
	Tokens      *TokenService
	Revocations RevocationChecker
	// Skipper marks routes that are served without a session.
	Skipper func(c echo.Context) bool
}

// JWTMiddleware resolves the bearer token into a Session on the request
// context. Skipped routes pass through when the token is missing or bad.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = AuthSkipper
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			skip := cfg.Skipper(c)

			raw, err := extractToken(c.Request())
			if err != nil {
				if skip {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			session, err := resolve(c.Request().Context(), cfg, raw)
			if err != nil {
				if skip {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set("actor_id", session.ActorID.String())
			c.SetRequest(c.Request().WithContext(WithSession(c.Request().Context(), session)))
			return next(c)
		}
	}
}

func resolve(ctx context.Context, cfg JWTConfig, raw string) (Session, error) {
	claims, err := cfg.Tokens.Parse(raw)
	if err != nil {
		return Session{}, err
	}
	if cfg.Revocations != nil {
		revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, ErrInvalidToken
		}
	}
	s := Session{
		ActorID: uuid.MustParse(claims.Subject),
		Role:    claims.Role,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

type tokenError string

func (e tokenError) Error() string { return string(e) }

const (
	errMissingToken  = tokenError("missing authorization token")
	errInvalidFormat = tokenError("invalid authorization format")
)

func extractToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tok) == "" {
			return "", errInvalidFormat
		}
		return strings.TrimSpace(tok), nil
	}
	for _, name := range legacyTokenHeaders {
		if tok := strings.TrimSpace(r.Header.Get(name)); tok != "" {
			return tok, nil
		}
	}
	return "", errMissingToken
}
