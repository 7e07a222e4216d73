package patient

import "github.com/clinicbook/clinicbook/internal/platform/apperr"

var (
	ErrNotFound              = apperr.New(apperr.NotFound, "patient not found")
	ErrEmailTaken            = apperr.New(apperr.Conflict, "a user with this email already exists")
	ErrInvalidCredentials    = apperr.New(apperr.Unauthorized, "invalid credentials")
	ErrHasActiveAppointments = apperr.New(apperr.Conflict, "cancel your upcoming appointments before deactivating the account")
)
