package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/domain/doctor"
	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/pkg/clinictime"
)

// DoctorDirectory is the part of the doctor service the calendar reads.
type DoctorDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}

// Calendar derives slot state from the doctor's template and the ledger. It
// keeps no state of its own.
type Calendar struct {
	doctors DoctorDirectory
	repo    Repository
	loc     *time.Location
	now     func() time.Time
}

func NewCalendar(doctors DoctorDirectory, repo Repository, loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{doctors: doctors, repo: repo, loc: loc, now: time.Now}
}

type slotRef struct {
	day   time.Time
	date  string
	clock clinictime.Clock
}

func parseDay(date string) (time.Time, string, error) {
	day, err := clinictime.ParseDate(date)
	if err != nil {
		return time.Time{}, "", apperr.Wrap(apperr.Validation, "date must be a date (YYYY-MM-DD)", err)
	}
	return day, day.Format(clinictime.DateLayout), nil
}

func parseSlot(date, clock string) (slotRef, error) {
	day, norm, err := parseDay(date)
	if err != nil {
		return slotRef{}, err
	}
	c, err := clinictime.ParseClock(clock)
	if err != nil {
		return slotRef{}, apperr.Wrap(apperr.Validation, "time must be a time (HH:MM)", err)
	}
	return slotRef{day: day, date: norm, clock: c}, nil
}

func (c *Calendar) past(day time.Time, clock clinictime.Clock) bool {
	return !clinictime.At(day, clock, c.loc).After(c.now())
}

func (c *Calendar) booked(ctx context.Context, doctorID uuid.UUID, date string) (map[string]bool, error) {
	times, err := c.repo.BookedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(times))
	for _, t := range times {
		set[t] = true
	}
	return set, nil
}

// ListOpenSlots returns the doctor's free slots on date, earliest first.
// Slots that have already started are left out; past dates and days that
// reached the doctor's daily capacity yield none.
func (c *Calendar) ListOpenSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	day, norm, err := parseDay(date)
	if err != nil {
		return nil, err
	}
	d, err := c.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := d.Bookable(); err != nil {
		return nil, err
	}

	slots := []Slot{}
	if day.Before(clinictime.Today(c.now(), c.loc)) {
		return slots, nil
	}
	taken, err := c.booked(ctx, doctorID, norm)
	if err != nil {
		return nil, err
	}
	if d.DayFull(len(taken)) {
		return slots, nil
	}
	for _, clock := range d.SlotTimes(day) {
		if taken[clock.String()] || c.past(day, clock) {
			continue
		}
		slots = append(slots, Slot{Date: norm, Time: clock.String(), State: SlotOpen})
	}
	return slots, nil
}

// IsOpen reports whether time is on the doctor's template for that weekday,
// no active appointment holds it and the day is under capacity.
func (c *Calendar) IsOpen(ctx context.Context, doctorID uuid.UUID, date, clock string) (bool, error) {
	ref, err := parseSlot(date, clock)
	if err != nil {
		return false, err
	}
	d, err := c.doctors.Get(ctx, doctorID)
	if err != nil {
		return false, err
	}
	return c.isOpen(ctx, d, ref)
}

func (c *Calendar) isOpen(ctx context.Context, d *doctor.Doctor, ref slotRef) (bool, error) {
	if !d.HasSlot(ref.day, ref.clock) {
		return false, nil
	}
	taken, err := c.booked(ctx, d.ID, ref.date)
	if err != nil {
		return false, err
	}
	return !taken[ref.clock.String()] && !d.DayFull(len(taken)), nil
}

// DaySlots lists every template slot of the day with its state, for the
// doctor's own console.
func (c *Calendar) DaySlots(ctx context.Context, doctorID uuid.UUID, date string) ([]Slot, error) {
	day, norm, err := parseDay(date)
	if err != nil {
		return nil, err
	}
	d, err := c.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	taken, err := c.booked(ctx, doctorID, norm)
	if err != nil {
		return nil, err
	}
	slots := []Slot{}
	for _, clock := range d.SlotTimes(day) {
		state := SlotOpen
		if taken[clock.String()] {
			state = SlotBooked
		}
		slots = append(slots, Slot{Date: norm, Time: clock.String(), State: state})
	}
	return slots, nil
}
