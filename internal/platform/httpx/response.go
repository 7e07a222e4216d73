// Package httpx holds the JSON envelope shared by every endpoint:
// {"success": true, ...} on success and {"success": false, "message": "..."}
// on failure.
package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
)

type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OK writes a 200 success envelope merged with payload.
func OK(c echo.Context, payload echo.Map) error {
	return Respond(c, http.StatusOK, payload)
}

// Created writes a 201 success envelope merged with payload.
func Created(c echo.Context, payload echo.Map) error {
	return Respond(c, http.StatusCreated, payload)
}

func Respond(c echo.Context, status int, payload echo.Map) error {
	body := echo.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.JSON(status, body)
}

// Bind decodes the request body into dst and runs the registered validator.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	if c.Echo().Validator == nil {
		return nil
	}
	return c.Validate(dst)
}

// ErrorHandler renders every error as the failure envelope. apperr kinds pick
// the status; echo.HTTPError keeps its own.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := classify(err)
		if status == http.StatusServiceUnavailable {
			c.Response().Header().Set("Retry-After", "1")
		}
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, ErrorBody{Success: false, Message: msg})
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
		return he.Code, msg
	}
	kind := apperr.KindOf(err)
	return kind.HTTPStatus(), apperr.Message(err)
}
