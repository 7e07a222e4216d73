package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
)

func loginContext(e *echo.Echo, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Login(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = httpx.NewValidator()

	c, rec := loginContext(e, `{"email":"admin@clinic.test","password":"s3cret-pass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("unexpected body %v", body)
	}
	if tok, _ := body["token"].(string); tok == "" {
		t.Error("expected a token")
	}
}

func TestHandler_Login_Failures(t *testing.T) {
	svc, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()
	e.Validator = httpx.NewValidator()

	c, _ := loginContext(e, `{"email":"admin@clinic.test","password":"wrong"}`)
	if err := h.Login(c); !apperr.Is(err, apperr.Unauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	c, _ = loginContext(e, `{"email":"not-an-email","password":"x"}`)
	if err := h.Login(c); !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
