package booking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
)

func newTestHandler(t *testing.T) (*Handler, *fixture, *echo.Echo) {
	f := newFixture(t)
	e := echo.New()
	e.Validator = httpx.NewValidator()
	return NewHandler(f.coord, f.ledger, f.calendar), f, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func as(req *http.Request, id uuid.UUID, role string) *http.Request {
	return req.WithContext(auth.WithSession(req.Context(), auth.Session{ActorID: id, Role: role}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestHandler_Book(t *testing.T) {
	h, f, e := newTestHandler(t)
	p := f.patient()

	body := `{"doctorId":"` + f.doctor.ID.String() + `","date":"2025-06-01","time":"09:00"}`
	rec := httptest.NewRecorder()
	c := e.NewContext(as(jsonRequest(http.MethodPost, body), p, auth.RolePatient), rec)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	got := decode(t, rec)
	appt, _ := got["appointment"].(map[string]interface{})
	if got["success"] != true || appt["patientId"] != p.String() || appt["slotTime"] != "09:00" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestHandler_Book_SlotTaken(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-06-01", "09:00")

	body := `{"doctorId":"` + f.doctor.ID.String() + `","date":"2025-06-01","time":"09:00"}`
	c := e.NewContext(as(jsonRequest(http.MethodPost, body), f.patient(), auth.RolePatient), httptest.NewRecorder())
	err := h.Book(c)
	if !apperr.Is(err, apperr.SlotTaken) {
		t.Errorf("expected slot taken, got %v", err)
	}
}

func TestHandler_Book_AdminNeedsPatient(t *testing.T) {
	h, f, e := newTestHandler(t)

	body := `{"doctorId":"` + f.doctor.ID.String() + `","date":"2025-06-01","time":"09:00"}`
	c := e.NewContext(as(jsonRequest(http.MethodPost, body), adminActor.ID, auth.RoleAdmin), httptest.NewRecorder())
	if err := h.Book(c); !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}

	p := f.patient()
	body = `{"doctorId":"` + f.doctor.ID.String() + `","date":"2025-06-01","time":"09:00","patientId":"` + p.String() + `"}`
	rec := httptest.NewRecorder()
	c = e.NewContext(as(jsonRequest(http.MethodPost, body), adminActor.ID, auth.RoleAdmin), rec)
	if err := h.Book(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	appt, _ := decode(t, rec)["appointment"].(map[string]interface{})
	if appt["patientId"] != p.String() {
		t.Errorf("expected booking for %s, got %v", p, appt)
	}
}

func TestHandler_Book_Validation(t *testing.T) {
	h, f, e := newTestHandler(t)

	c := e.NewContext(as(jsonRequest(http.MethodPost, `{"date":"2025-06-01","time":"09:00"}`), f.patient(), auth.RolePatient),
		httptest.NewRecorder())
	err := h.Book(c)
	if apperr.Message(err) != "doctorId is required" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestHandler_Cancel(t *testing.T) {
	h, f, e := newTestHandler(t)
	p := f.patient()
	a := f.book(t, p, "2025-06-01", "09:00")

	rec := httptest.NewRecorder()
	body := `{"appointmentId":"` + a.ID.String() + `"}`
	c := e.NewContext(as(jsonRequest(http.MethodPost, body), p, auth.RolePatient), rec)
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := decode(t, rec)
	if got["success"] != true || got["message"] != "appointment cancelled" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestHandler_Cancel_Forbidden(t *testing.T) {
	h, f, e := newTestHandler(t)
	a := f.book(t, f.patient(), "2025-06-01", "09:00")

	body := `{"appointmentId":"` + a.ID.String() + `"}`
	c := e.NewContext(as(jsonRequest(http.MethodPost, body), f.patient(), auth.RolePatient), httptest.NewRecorder())
	if err := h.Cancel(c); !apperr.Is(err, apperr.Forbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestHandler_Cancel_NoSession(t *testing.T) {
	h, _, e := newTestHandler(t)

	c := e.NewContext(jsonRequest(http.MethodPost, `{"appointmentId":"`+uuid.NewString()+`"}`), httptest.NewRecorder())
	err := h.Cancel(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_OpenSlots(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-06-01", "09:00")

	q := url.Values{"doctorId": {f.doctor.ID.String()}, "date": {"2025-06-01"}}
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil), rec)
	if err := h.OpenSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slots, _ := decode(t, rec)["slots"].([]interface{})
	if len(slots) != 5 {
		t.Errorf("expected 5 open slots, got %d", len(slots))
	}
}

func TestHandler_OpenSlots_BadDoctorID(t *testing.T) {
	h, _, e := newTestHandler(t)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?doctorId=abc&date=2025-06-01", nil), httptest.NewRecorder())
	if err := h.OpenSlots(c); !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Day(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-05-30", "09:00")

	rec := httptest.NewRecorder()
	c := e.NewContext(as(httptest.NewRequest(http.MethodGet, "/", nil), f.doctor.ID, auth.RoleDoctor), rec)
	if err := h.Day(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slots, _ := decode(t, rec)["slots"].([]interface{})
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots for today, got %d", len(slots))
	}
	first, _ := slots[0].(map[string]interface{})
	if first["date"] != "2025-05-30" || first["state"] != SlotBooked {
		t.Errorf("unexpected first slot %v", first)
	}
}

func TestHandler_PatientAppointments(t *testing.T) {
	h, f, e := newTestHandler(t)
	p := f.patient()
	f.book(t, p, "2025-06-01", "09:00")
	f.book(t, p, "2025-06-01", "09:30")
	f.book(t, f.patient(), "2025-06-01", "10:00")

	rec := httptest.NewRecorder()
	c := e.NewContext(as(httptest.NewRequest(http.MethodGet, "/", nil), p, auth.RolePatient), rec)
	if err := h.PatientAppointments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := decode(t, rec)
	items, _ := got["appointments"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(items))
	}
	pageInfo, _ := got["page"].(map[string]interface{})
	if pageInfo["total"] != float64(2) {
		t.Errorf("unexpected page %v", pageInfo)
	}
}

func TestHandler_Day_AdminNamesDoctor(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-06-01", "09:30")

	req := httptest.NewRequest(http.MethodGet, "/?doctorId="+f.doctor.ID.String()+"&date=2025-06-01", nil)
	rec := httptest.NewRecorder()
	if err := h.Day(e.NewContext(as(req, adminActor.ID, auth.RoleAdmin), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slots, _ := decode(t, rec)["slots"].([]interface{})
	if len(slots) != 6 {
		t.Fatalf("expected the doctor's 6 slots, got %d", len(slots))
	}
	second, _ := slots[1].(map[string]interface{})
	if second["state"] != SlotBooked {
		t.Errorf("expected 09:30 booked, got %v", second)
	}

	req = httptest.NewRequest(http.MethodGet, "/?date=2025-06-01", nil)
	err := h.Day(e.NewContext(as(req, adminActor.ID, auth.RoleAdmin), httptest.NewRecorder()))
	if apperr.Message(err) != "doctorId is required" {
		t.Errorf("expected doctorId to be required for admins, got %v", err)
	}
}

func TestHandler_DoctorAppointments_AdminNamesDoctor(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-06-01", "09:00")
	f.book(t, f.patient(), "2025-06-01", "10:00")

	req := httptest.NewRequest(http.MethodGet, "/?doctorId="+f.doctor.ID.String(), nil)
	rec := httptest.NewRecorder()
	if err := h.DoctorAppointments(e.NewContext(as(req, adminActor.ID, auth.RoleAdmin), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := decode(t, rec)["appointments"].([]interface{})
	if len(items) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(items))
	}
}

func TestHandler_DoctorAppointments_DoctorIgnoresQuery(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, f.patient(), "2025-06-01", "09:00")

	req := httptest.NewRequest(http.MethodGet, "/?doctorId="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	if err := h.DoctorAppointments(e.NewContext(as(req, f.doctor.ID, auth.RoleDoctor), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := decode(t, rec)["appointments"].([]interface{})
	if len(items) != 1 {
		t.Errorf("a doctor must only see their own appointments, got %d", len(items))
	}
}
