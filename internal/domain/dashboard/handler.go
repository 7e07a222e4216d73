package dashboard

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/internal/platform/httpx"
)

// AdminSource is either the live Service or a Snapshotter.
type AdminSource interface {
	Admin(ctx context.Context) (*AdminData, error)
}

type Handler struct {
	admin AdminSource
	svc   *Service
}

func NewHandler(admin AdminSource, svc *Service) *Handler {
	return &Handler{admin: admin, svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/admin/dashboard", h.Admin, auth.RequireRole(auth.RoleAdmin))
	api.GET("/doctor/dashboard", h.Doctor, auth.RequireRole(auth.RoleDoctor))
}

func (h *Handler) Admin(c echo.Context) error {
	data, err := h.admin.Admin(c.Request().Context())
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"dashData": data})
}

// Doctor serves the doctor's own dashboard; admins name the doctor with
// ?doctorId=.
func (h *Handler) Doctor(c echo.Context) error {
	doctorID, err := auth.ActingFor(c, "doctorId")
	if err != nil {
		return err
	}
	data, err := h.svc.Doctor(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	return httpx.OK(c, echo.Map{"dashData": data})
}
