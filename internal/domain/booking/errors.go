package booking

import (
	"errors"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
)

var (
	ErrNotFound         = apperr.New(apperr.NotFound, "appointment not found")
	ErrPatientNotFound  = apperr.New(apperr.NotFound, "patient not found")
	ErrSlotTaken        = apperr.New(apperr.SlotTaken, "slot not available")
	ErrDayFull          = apperr.New(apperr.SlotTaken, "doctor is fully booked on this day")
	ErrSlotInPast       = apperr.New(apperr.SlotInPast, "slot is in the past")
	ErrAlreadyCancelled = apperr.New(apperr.AlreadyCancelled, "appointment already cancelled")
	ErrAlreadyCompleted = apperr.New(apperr.AlreadyCompleted, "appointment already completed")
	ErrAlreadyPaid      = apperr.New(apperr.Conflict, "payment already confirmed")
	ErrForbidden        = apperr.New(apperr.Forbidden, "not allowed to change this appointment")
	ErrBusy             = apperr.New(apperr.Busy, "slot is busy, please try again")
)

// ErrStaleWrite means a conditional update matched no row because the
// appointment changed since it was read.
var ErrStaleWrite = errors.New("appointment changed concurrently")
