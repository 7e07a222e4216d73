package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Deactivate fails with ErrHasActiveAppointments while the patient holds
	// appointments that are neither cancelled nor completed.
	Deactivate(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context) (int, error)
}
