package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Snapshotter recomputes the admin dashboard on a cron schedule and serves
// the last good result. Until the first refresh succeeds it computes on
// demand.
type Snapshotter struct {
	svc     *Service
	cron    *cron.Cron
	logger  zerolog.Logger
	current atomic.Pointer[AdminData]
}

// NewSnapshotter accepts standard five-field specs and descriptors such as
// "@every 30s".
func NewSnapshotter(svc *Service, spec string, logger zerolog.Logger) (*Snapshotter, error) {
	s := &Snapshotter{svc: svc, cron: cron.New(), logger: logger}
	if _, err := s.cron.AddFunc(spec, func() { s.Refresh(context.Background()) }); err != nil {
		return nil, fmt.Errorf("dashboard refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start takes a first snapshot and starts the schedule.
func (s *Snapshotter) Start(ctx context.Context) {
	s.Refresh(ctx)
	s.cron.Start()
}

// Stop halts the schedule and returns a context that is done once a running
// refresh has finished.
func (s *Snapshotter) Stop() context.Context {
	return s.cron.Stop()
}

// Refresh recomputes the snapshot. Failures keep the previous one.
func (s *Snapshotter) Refresh(ctx context.Context) {
	data, err := s.svc.Admin(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("dashboard refresh failed")
		return
	}
	s.current.Store(data)
	s.logger.Debug().Int("appointments", data.Appointments).Msg("dashboard refreshed")
}

func (s *Snapshotter) Admin(ctx context.Context) (*AdminData, error) {
	if data := s.current.Load(); data != nil {
		return data, nil
	}
	return s.svc.Admin(ctx)
}
