package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
	"github.com/clinicbook/clinicbook/pkg/clinictime"
	"github.com/clinicbook/clinicbook/pkg/pagination"
)

type Handler struct {
	coord    *Coordinator
	ledger   *Ledger
	calendar *Calendar
}

func NewHandler(coord *Coordinator, ledger *Ledger, calendar *Calendar) *Handler {
	return &Handler{coord: coord, ledger: ledger, calendar: calendar}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/appointment/slots", h.OpenSlots)

	patient := api.Group("", auth.RequireRole(auth.RolePatient))
	patient.POST("/appointment/book", h.Book)
	patient.GET("/user/appointments", h.PatientAppointments)

	anyone := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	anyone.POST("/appointment/cancel", h.Cancel)

	doc := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doc.POST("/appointment/complete", h.Complete)
	doc.GET("/doctor/appointments", h.DoctorAppointments)
	doc.GET("/doctor/day", h.Day)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/appointment/confirm-payment", h.ConfirmPayment)
	admin.GET("/admin/appointments", h.AllAppointments)
}

type bookRequest struct {
	DoctorID string `json:"doctorId" validate:"required,uuid"`
	Date     string `json:"date" validate:"required,slotdate"`
	Time     string `json:"time" validate:"required,slottime"`

	// PatientID is only honoured for admins booking on a patient's behalf.
	PatientID string `json:"patientId" validate:"omitempty,uuid"`
}

type appointmentIDRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,uuid"`
}

func (r appointmentIDRequest) id() uuid.UUID {
	id, _ := uuid.Parse(r.AppointmentID)
	return id
}

func (h *Handler) OpenSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctorId"))
	if err != nil {
		return apperr.Invalid("doctorId must be a valid UUID")
	}
	date := c.QueryParam("date")
	if date == "" {
		return apperr.Invalid("date is required")
	}
	slots, err := h.calendar.ListOpenSlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"slots": slots})
}

func (h *Handler) Book(c echo.Context) error {
	s, err := auth.CurrentSession(c)
	if err != nil {
		return err
	}
	var req bookRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	patientID := s.ActorID
	if s.IsAdmin() {
		if req.PatientID == "" {
			return apperr.Invalid("patientId is required")
		}
		patientID = uuid.MustParse(req.PatientID)
	}

	a, err := h.coord.Book(c.Request().Context(), BookRequest{
		DoctorID:  uuid.MustParse(req.DoctorID),
		PatientID: patientID,
		Date:      req.Date,
		Time:      req.Time,
	})
	if err != nil {
		return err
	}
	return httpx.Created(c, echo.Map{"message": "appointment booked", "appointment": a})
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.change(c, "appointment cancelled", h.coord.Cancel)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.change(c, "appointment completed", h.coord.Complete)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	return h.change(c, "payment confirmed", h.coord.ConfirmPayment)
}

type changeFunc func(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error)

func (h *Handler) change(c echo.Context, msg string, fn changeFunc) error {
	s, err := auth.CurrentSession(c)
	if err != nil {
		return err
	}
	var req appointmentIDRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	a, err := fn(c.Request().Context(), req.id(), ActorFromSession(s))
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": msg, "appointment": a})
}

func (h *Handler) PatientAppointments(c echo.Context) error {
	id, err := auth.ActingFor(c, "patientId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.ledger.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"appointments": nonNil(items), "page": pg.Page(total)})
}

// DoctorAppointments lists the doctor's appointments. Admins pick the doctor
// with ?doctorId=.
func (h *Handler) DoctorAppointments(c echo.Context) error {
	doctorID, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.ledger.ListByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"appointments": nonNil(items), "page": pg.Page(total)})
}

// Day shows a doctor's schedule for a date, today by default. Doctors see
// their own; admins pick one with ?doctorId=.
func (h *Handler) Day(c echo.Context) error {
	doctorID, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		date = clinictime.Today(h.calendar.now(), h.calendar.loc).Format(clinictime.DateLayout)
	}
	slots, err := h.calendar.DaySlots(c.Request().Context(), doctorID, date)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"slots": slots})
}

func (h *Handler) AllAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.ledger.ListAll(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"appointments": nonNil(items), "page": pg.Page(total)})
}

func nonNil(items []*View) []*View {
	if items == nil {
		return []*View{}
	}
	return items
}
