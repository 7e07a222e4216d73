// Package dashboard aggregates ledger and directory counts for the admin and
// doctor consoles. It reads without taking slot locks, so a result may trail
// an in-flight booking.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clinicbook/clinicbook/internal/domain/booking"
)

// Counter is satisfied by the doctor and patient services.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Appointments is the read side of the booking ledger.
type Appointments interface {
	Count(ctx context.Context) (int, error)
	ListLatest(ctx context.Context, n int) ([]*booking.View, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*booking.View, int, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID) (booking.DoctorStats, error)
}

type AdminData struct {
	Doctors            int             `json:"doctors"`
	Appointments       int             `json:"appointments"`
	Patients           int             `json:"patients"`
	LatestAppointments []*booking.View `json:"latestAppointments"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

type DoctorData struct {
	Earnings           int64           `json:"earnings"`
	Appointments       int             `json:"appointments"`
	Patients           int             `json:"patients"`
	LatestAppointments []*booking.View `json:"latestAppointments"`
}

type Service struct {
	doctors  Counter
	patients Counter
	appts    Appointments
	latest   int
	now      func() time.Time
}

// NewService builds a dashboard whose latestAppointments hold at most latest
// entries.
func NewService(doctors, patients Counter, appts Appointments, latest int) *Service {
	if latest <= 0 {
		latest = 5
	}
	return &Service{doctors: doctors, patients: patients, appts: appts, latest: latest, now: time.Now}
}

// Admin computes the clinic-wide counters concurrently.
func (s *Service) Admin(ctx context.Context) (*AdminData, error) {
	data := &AdminData{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Doctors, err = s.doctors.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.Patients, err = s.patients.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.Appointments, err = s.appts.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		data.LatestAppointments, err = s.appts.ListLatest(ctx, s.latest)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	data.LatestAppointments = nonNil(data.LatestAppointments)
	data.GeneratedAt = s.now()
	return data, nil
}

// Doctor summarizes one doctor's own appointments.
func (s *Service) Doctor(ctx context.Context, doctorID uuid.UUID) (*DoctorData, error) {
	data := &DoctorData{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stats, err := s.appts.DoctorStats(ctx, doctorID)
		if err != nil {
			return err
		}
		data.Earnings, data.Appointments, data.Patients = stats.Earnings, stats.Appointments, stats.Patients
		return nil
	})
	g.Go(func() (err error) {
		data.LatestAppointments, _, err = s.appts.ListByDoctor(ctx, doctorID, s.latest, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	data.LatestAppointments = nonNil(data.LatestAppointments)
	return data, nil
}

func nonNil(items []*booking.View) []*booking.View {
	if items == nil {
		return []*booking.View{}
	}
	return items
}
