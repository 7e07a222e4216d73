package patient

import (
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/user/register", h.Register)
	api.POST("/user/login", h.Login)

	self := api.Group("", auth.RequireRole(auth.RolePatient))
	self.GET("/user/profile", h.Profile)
	self.POST("/user/update-profile", h.UpdateProfile)
	self.POST("/user/deactivate", h.Deactivate)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	token, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"token": token})
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

func (h *Handler) Profile(c echo.Context) error {
	id, err := auth.ActingFor(c, "patientId")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"userData": p})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := auth.ActingFor(c, "patientId")
	if err != nil {
		return err
	}
	var in ProfileUpdate
	if err := httpx.Bind(c, &in); err != nil {
		return err
	}
	p, err := h.svc.UpdateProfile(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": "profile updated", "userData": p})
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := auth.ActingFor(c, "patientId")
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"message": "account deactivated"})
}
