package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/platform/apperr"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
	"github.com/clinicbook/clinicbook/pkg/clinictime"
)

type Service struct {
	repo   Repository
	tokens *auth.TokenService
}

func NewService(repo Repository, tokens *auth.TokenService) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates the account and returns a patient token, so the client is
// logged in straight away.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", err
	}
	p := &Patient{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Gender:       "Not Selected",
		Active:       true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return "", err
	}
	return s.tokens.Issue(p.ID, auth.RolePatient)
}

func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	p, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !p.Active {
		return "", ErrInvalidCredentials
	}
	if err := auth.CheckPassword(p.PasswordHash, password); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Issue(p.ID, auth.RolePatient)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrNotFound
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		p.Phone = *in.Phone
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.DOB != nil {
		dob, err := clinictime.NormalizeDate(*in.DOB)
		if err != nil {
			return nil, apperr.Invalid("dob must be a date (YYYY-MM-DD)")
		}
		p.DOB = dob
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.repo.Deactivate(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountActive(ctx)
}
