package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/platform/auth"
)

// Ledger applies the appointment rules on top of the repository. Its
// mutating methods expect the caller to hold the slot's lock (see
// Coordinator); the repository's unique index backs that up.
type Ledger struct {
	repo     Repository
	calendar *Calendar
}

func NewLedger(repo Repository, calendar *Calendar) *Ledger {
	return &Ledger{repo: repo, calendar: calendar}
}

// Create books (doctorID, date, time) for patientID, copying the doctor's
// current fee onto the appointment. A capped doctor's day also needs the
// coordinator's day lock, since slots of one day lock separately.
func (l *Ledger) Create(ctx context.Context, doctorID, patientID uuid.UUID, date, clock string) (*Appointment, error) {
	ref, err := parseSlot(date, clock)
	if err != nil {
		return nil, err
	}
	d, err := l.calendar.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := d.Bookable(); err != nil {
		return nil, err
	}
	if l.calendar.past(ref.day, ref.clock) {
		return nil, ErrSlotInPast
	}
	taken, err := l.calendar.booked(ctx, d.ID, ref.date)
	if err != nil {
		return nil, err
	}
	if !d.HasSlot(ref.day, ref.clock) || taken[ref.clock.String()] {
		return nil, ErrSlotTaken
	}
	if d.DayFull(len(taken)) {
		return nil, ErrDayFull
	}

	a := &Appointment{
		DoctorID:  d.ID,
		PatientID: patientID,
		SlotDate:  ref.date,
		SlotTime:  ref.clock.String(),
		Fee:       d.Fee,
	}
	if err := l.repo.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// capped reports whether the doctor limits active bookings per day.
func (l *Ledger) capped(ctx context.Context, doctorID uuid.UUID) (bool, error) {
	d, err := l.calendar.doctors.Get(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return d.DailyCapacity > 0, nil
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return l.repo.GetByID(ctx, id)
}

func stateError(a *Appointment) error {
	switch {
	case a.Cancelled:
		return ErrAlreadyCancelled
	case a.IsCompleted:
		return ErrAlreadyCompleted
	}
	return nil
}

// mutate runs a conditional repository update. A stale write means the row
// moved on since it was read; re-read it and report why.
func (l *Ledger) mutate(ctx context.Context, id uuid.UUID, check func(*Appointment) error,
	apply func() (*Appointment, error)) (*Appointment, error) {
	a, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(a); err != nil {
		return nil, err
	}
	updated, applyErr := apply()
	if !errors.Is(applyErr, ErrStaleWrite) {
		return updated, applyErr
	}
	if a, err = l.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := check(a); err != nil {
		return nil, err
	}
	return nil, applyErr
}

// Cancel frees the slot. The owning patient, the assigned doctor or an admin
// may cancel; completed and cancelled appointments cannot be.
func (l *Ledger) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return l.mutate(ctx, id, func(a *Appointment) error {
		switch {
		case actor.Role == auth.RoleAdmin:
		case actor.Role == auth.RolePatient && a.PatientID == actor.ID:
		case actor.Role == auth.RoleDoctor && a.DoctorID == actor.ID:
		default:
			return ErrForbidden
		}
		return stateError(a)
	}, func() (*Appointment, error) {
		return l.repo.MarkCancelled(ctx, id, actor.Role, l.calendar.now())
	})
}

// MarkCompleted is open to the assigned doctor and admins. Completion does
// not depend on the slot date or on payment.
func (l *Ledger) MarkCompleted(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return l.mutate(ctx, id, func(a *Appointment) error {
		switch {
		case actor.Role == auth.RoleAdmin:
		case actor.Role == auth.RoleDoctor && a.DoctorID == actor.ID:
		default:
			return ErrForbidden
		}
		return stateError(a)
	}, func() (*Appointment, error) {
		return l.repo.MarkCompleted(ctx, id, l.calendar.now())
	})
}

// ConfirmPayment records that the visit was paid. No money moves here.
func (l *Ledger) ConfirmPayment(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return l.mutate(ctx, id, func(a *Appointment) error {
		if actor.Role != auth.RoleAdmin {
			return ErrForbidden
		}
		if a.Cancelled {
			return ErrAlreadyCancelled
		}
		if a.PaymentConfirmed {
			return ErrAlreadyPaid
		}
		return nil
	}, func() (*Appointment, error) {
		return l.repo.MarkPaid(ctx, id)
	})
}

// ListLatest returns the n most recently created appointments, newest first.
func (l *Ledger) ListLatest(ctx context.Context, n int) ([]*View, error) {
	if n <= 0 {
		return []*View{}, nil
	}
	return l.repo.ListLatest(ctx, n)
}

func (l *Ledger) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*View, int, error) {
	return l.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (l *Ledger) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*View, int, error) {
	return l.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (l *Ledger) ListAll(ctx context.Context, limit, offset int) ([]*View, int, error) {
	return l.repo.ListAll(ctx, limit, offset)
}

func (l *Ledger) Count(ctx context.Context) (int, error) {
	return l.repo.Count(ctx)
}

func (l *Ledger) DoctorStats(ctx context.Context, doctorID uuid.UUID) (DoctorStats, error) {
	return l.repo.DoctorStats(ctx, doctorID)
}
