package doctor

import "github.com/clinicbook/clinicbook/internal/platform/apperr"

var (
	ErrNotFound           = apperr.New(apperr.NotFound, "doctor not found")
	ErrUnavailable        = apperr.New(apperr.DoctorUnavailable, "doctor not available")
	ErrEmailTaken         = apperr.New(apperr.Conflict, "a doctor with this email already exists")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid credentials")
)
