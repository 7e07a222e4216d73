package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the durable ledger. Dates are "YYYY-MM-DD" and times "HH:MM".
type Repository interface {
	// Insert fails with ErrSlotTaken when an active appointment already holds
	// the slot, and ErrPatientNotFound for unknown or deactivated patients.
	Insert(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// BookedTimes lists the slot times held by active appointments.
	BookedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error)

	// The Mark* methods only apply to an appointment that is neither
	// cancelled nor completed (MarkPaid: not cancelled, not yet paid), and
	// return ErrStaleWrite otherwise.
	MarkCancelled(ctx context.Context, id uuid.UUID, by string, at time.Time) (*Appointment, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*Appointment, error)

	ListLatest(ctx context.Context, n int) ([]*View, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*View, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*View, int, error)
	ListAll(ctx context.Context, limit, offset int) ([]*View, int, error)
	Count(ctx context.Context) (int, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID) (DoctorStats, error)
}
