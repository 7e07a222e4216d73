package doctor

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
	"github.com/clinicbook/clinicbook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/doctor/login", h.Login)
	api.GET("/doctor/list", h.List)

	self := api.Group("", auth.RequireRole(auth.RoleDoctor))
	self.GET("/doctor/profile", h.Profile)
	self.POST("/doctor/update-profile", h.UpdateProfile)
	self.POST("/doctor/change-availability", h.ChangeOwnAvailability)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/admin/add-doctor", h.Add)
	admin.GET("/admin/all-doctors", h.ListAll)
	admin.POST("/admin/change-availability", h.ChangeAvailability)
	admin.POST("/admin/deactivate-doctor", h.Deactivate)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type doctorIDRequest struct {
	DoctorID string `json:"doctorId" validate:"required,uuid"`
}

func (r doctorIDRequest) id() uuid.UUID {
	id, _ := uuid.Parse(r.DoctorID)
	return id
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	token, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"token": token})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"doctors": nonNil(items), "page": pg.Page(total)})
}

func (h *Handler) ListAll(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAll(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"doctors": nonNil(items), "page": pg.Page(total)})
}

func (h *Handler) Profile(c echo.Context) error {
	id, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"profileData": d})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	var in ProfileUpdate
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	d, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": "profile updated", "profileData": d})
}

func (h *Handler) ChangeOwnAvailability(c echo.Context) error {
	id, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	return h.toggle(c, id)
}

func (h *Handler) ChangeAvailability(c echo.Context) error {
	var req doctorIDRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	return h.toggle(c, req.id())
}

func (h *Handler) toggle(c echo.Context, id uuid.UUID) error {
	available, err := h.svc.ToggleAvailability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": "availability changed", "available": available})
}

func (h *Handler) Add(c echo.Context) error {
	var in AddInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	d, err := h.svc.Add(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return httpx.Created(c, echo.Map{"message": "doctor added", "doctor": d})
}

func (h *Handler) Deactivate(c echo.Context) error {
	var req doctorIDRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), req.id()); err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": "doctor deactivated"})
}

func nonNil(items []*Doctor) []*Doctor {
	if items == nil {
		return []*Doctor{}
	}
	return items
}
