package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	svc, repo := newTestService()
	e := echo.New()
	e.Validator = httpx.NewValidator()
	return NewHandler(svc), repo, e
}

func jsonRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func asPatient(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), auth.Session{ActorID: id, Role: auth.RolePatient}))
}

func TestHandler_Register(t *testing.T) {
	h, _, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(`{"name":"Pat","email":"pat@mail.test","password":"password123"}`), rec)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("expected success, got %v", body)
	}
	if tok, _ := body["token"].(string); tok == "" {
		t.Error("expected a token")
	}
}

func TestHandler_Register_Validation(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(jsonRequest(`{"name":"Pat","email":"pat@mail.test","password":"short"}`), httptest.NewRecorder())

	if err := h.Register(c); !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Login(t *testing.T) {
	h, _, e := newTestHandler()
	register(t, h.svc, "pat@mail.test")

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(`{"email":"pat@mail.test","password":"password123"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"token"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Profile(t *testing.T) {
	h, _, e := newTestHandler()
	id := register(t, h.svc, "pat@mail.test")

	rec := httptest.NewRecorder()
	c := e.NewContext(asPatient(httptest.NewRequest(http.MethodGet, "/", nil), id), rec)
	if err := h.Profile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "pat@mail.test") {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("profile must not expose password hash")
	}
}

func TestHandler_UpdateProfile_RejectsBadGender(t *testing.T) {
	h, _, e := newTestHandler()
	id := register(t, h.svc, "pat@mail.test")

	c := e.NewContext(asPatient(jsonRequest(`{"gender":"Robot"}`), id), httptest.NewRecorder())
	if err := h.UpdateProfile(c); !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Deactivate_Conflict(t *testing.T) {
	h, repo, e := newTestHandler()
	id := register(t, h.svc, "pat@mail.test")
	repo.open[id] = 2

	c := e.NewContext(asPatient(httptest.NewRequest(http.MethodPost, "/", nil), id), httptest.NewRecorder())
	err := h.Deactivate(c)
	if apperr.KindOf(err).HTTPStatus() != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}
