package doctor

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
)

type Service struct {
	repo               Repository
	tokens             *auth.TokenService
	defaultSlotMinutes int
}

func NewService(repo Repository, tokens *auth.TokenService, defaultSlotMinutes int) *Service {
	if defaultSlotMinutes <= 0 {
		defaultSlotMinutes = 30
	}
	return &Service{repo: repo, tokens: tokens, defaultSlotMinutes: defaultSlotMinutes}
}

// Add registers a new doctor. The doctor starts active and available, on the
// default weekly template unless one is supplied.
func (s *Service) Add(ctx context.Context, in AddInput) (*Doctor, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	d := &Doctor{
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:  hash,
		Image:         in.Image,
		Speciality:    in.Speciality,
		Degree:        in.Degree,
		Experience:    in.Experience,
		About:         in.About,
		Fee:           in.Fee,
		Address:       in.Address,
		Available:     true,
		Active:        true,
		SlotMinutes:   in.SlotMinutes,
		DailyCapacity: in.DailyCapacity,
		WorkingHours:  DefaultTemplate(),
	}
	if d.SlotMinutes == 0 {
		d.SlotMinutes = s.defaultSlotMinutes
	}
	if in.WorkingHours != nil {
		if err := in.WorkingHours.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.Validation, err.Error(), err)
		}
		d.WorkingHours = *in.WorkingHours
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Login checks a doctor's credentials and issues a doctor token. Unknown
// emails, wrong passwords and deactivated doctors look the same to callers.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	d, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !d.Active {
		return "", ErrInvalidCredentials
	}
	if err := auth.CheckPassword(d.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(d.ID, auth.RoleDoctor)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active doctors for the public directory.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, false, limit, offset)
}

// ListAll includes deactivated doctors, for the admin console.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.List(ctx, true, limit, offset)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.WorkingHours != nil {
		if err := in.WorkingHours.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.Validation, err.Error(), err)
		}
		d.WorkingHours = *in.WorkingHours
	}
	if in.Fee != nil {
		d.Fee = *in.Fee
	}
	if in.Address != nil {
		d.Address = *in.Address
	}
	if in.Available != nil {
		d.Available = *in.Available && d.Active
	}
	if in.About != nil {
		d.About = *in.About
	}
	if in.Image != nil {
		d.Image = *in.Image
	}
	if in.SlotMinutes != nil {
		d.SlotMinutes = *in.SlotMinutes
	}
	if in.DailyCapacity != nil {
		d.DailyCapacity = *in.DailyCapacity
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ToggleAvailability flips whether the doctor accepts new bookings. Existing
// appointments are unaffected. Deactivated doctors stay unavailable.
func (s *Service) ToggleAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !d.Active {
		return false, ErrUnavailable
	}
	return s.repo.ToggleAvailable(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}
