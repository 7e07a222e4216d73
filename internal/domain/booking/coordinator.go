package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/db"
	"github.com/clinicbook/clinicbook/internal/platform/lock"
	"github.com/clinicbook/clinicbook/pkg/clinictime"
)

// Observer receives coordinator measurements. *telemetry.Metrics satisfies it.
type Observer interface {
	ObserveOperation(operation, outcome string)
	ObserveLockWait(d time.Duration)
	ObserveRetry(operation string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string) {}
func (nopObserver) ObserveLockWait(time.Duration)   {}
func (nopObserver) ObserveRetry(string)             {}

type CoordinatorConfig struct {
	// LockWait bounds how long a request queues for its slot.
	LockWait time.Duration
	// Retries is how many extra attempts a transient storage error gets.
	Retries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{LockWait: 2 * time.Second, Retries: 3, Backoff: 25 * time.Millisecond}
}

// Coordinator serializes every state change of a slot behind that slot's
// lock, so the check-then-insert in the Ledger cannot interleave with another
// request for the same slot.
type Coordinator struct {
	ledger *Ledger
	locks  lock.Locker
	cfg    CoordinatorConfig
	logger zerolog.Logger
	obs    Observer
}

func NewCoordinator(ledger *Ledger, locks lock.Locker, cfg CoordinatorConfig, logger zerolog.Logger, obs Observer) *Coordinator {
	if obs == nil {
		obs = nopObserver{}
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Coordinator{ledger: ledger, locks: locks, cfg: cfg, logger: logger, obs: obs}
}

type BookRequest struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      string
	Time      string
}

// Book reserves the slot for the patient. A slot that is no longer open fails
// with ErrSlotTaken and a capped doctor's full day with ErrDayFull; the caller
// picks another one.
func (c *Coordinator) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	date, err := clinictime.NormalizeDate(req.Date)
	if err != nil {
		return nil, apperr.Invalid("date must be a date (YYYY-MM-DD)")
	}
	clock, err := clinictime.NormalizeClock(req.Time)
	if err != nil {
		return nil, apperr.Invalid("time must be a time (HH:MM)")
	}

	keys := []string{Key(req.DoctorID, date, clock)}
	capped, err := c.ledger.capped(ctx, req.DoctorID)
	if err != nil {
		c.obs.ObserveOperation("book", outcome(err))
		return nil, err
	}
	if capped {
		keys = append([]string{DayKey(req.DoctorID, date)}, keys...)
	}

	var out *Appointment
	err = c.withSlot(ctx, "book", keys, func(ctx context.Context) error {
		a, err := c.ledger.Create(ctx, req.DoctorID, req.PatientID, date, clock)
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info().Str("appointment_id", out.ID.String()).Str("slot", out.Key()).Msg("appointment booked")
	return out, nil
}

func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return c.change(ctx, "cancel", id, func(ctx context.Context) (*Appointment, error) {
		return c.ledger.Cancel(ctx, id, actor)
	})
}

func (c *Coordinator) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return c.change(ctx, "complete", id, func(ctx context.Context) (*Appointment, error) {
		return c.ledger.MarkCompleted(ctx, id, actor)
	})
}

func (c *Coordinator) ConfirmPayment(ctx context.Context, id uuid.UUID, actor Actor) (*Appointment, error) {
	return c.change(ctx, "confirm_payment", id, func(ctx context.Context) (*Appointment, error) {
		return c.ledger.ConfirmPayment(ctx, id, actor)
	})
}

// change locks the slot an existing appointment occupies. The slot of an
// appointment never changes, so reading it before locking is safe.
func (c *Coordinator) change(ctx context.Context, op string, id uuid.UUID,
	fn func(ctx context.Context) (*Appointment, error)) (*Appointment, error) {
	a, err := c.ledger.Get(ctx, id)
	if err != nil {
		c.obs.ObserveOperation(op, outcome(err))
		return nil, err
	}
	var out *Appointment
	err = c.withSlot(ctx, op, []string{a.Key()}, func(ctx context.Context) error {
		updated, err := fn(ctx)
		out = updated
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withSlot takes keys in order within one LockWait budget, runs fn and
// releases them in reverse. A key reached with the budget spent gets a
// single attempt.
func (c *Coordinator) withSlot(ctx context.Context, op string, keys []string, fn func(ctx context.Context) error) (err error) {
	defer func() { c.obs.ObserveOperation(op, outcome(err)) }()

	deadline := time.Now().Add(c.cfg.LockWait)
	for _, key := range keys {
		release, err := c.acquire(ctx, op, key, time.Until(deadline))
		if err != nil {
			return err
		}
		defer release()
	}
	return c.retry(ctx, op, keys[len(keys)-1], fn)
}

func (c *Coordinator) acquire(ctx context.Context, op, key string, wait time.Duration) (lock.Release, error) {
	start := time.Now()
	release, err := c.locks.Acquire(ctx, key, wait)
	c.obs.ObserveLockWait(time.Since(start))
	switch {
	case err == nil:
		return release, nil
	case errors.Is(err, lock.ErrTimeout):
		c.logger.Warn().Str("op", op).Str("slot", key).Dur("wait", c.cfg.LockWait).Msg("slot lock wait exceeded")
		return nil, ErrBusy
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		c.logger.Error().Err(err).Str("op", op).Str("slot", key).Msg("slot lock unavailable")
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
}

// retry reruns fn on transient storage errors only. Domain errors such as
// ErrSlotTaken return immediately.
func (c *Coordinator) retry(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil || !db.IsTransient(err) {
			return err
		}
		if attempt >= c.cfg.Retries {
			break
		}
		c.obs.ObserveRetry(op)
		c.logger.Warn().Err(err).Str("op", op).Str("slot", key).Int("attempt", attempt+1).Msg("transient storage error, retrying")

		t := time.NewTimer(c.cfg.Backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	c.logger.Error().Err(err).Str("op", op).Str("slot", key).Msg("storage retries exhausted")
	return fmt.Errorf("%w: %w", ErrBusy, err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}
