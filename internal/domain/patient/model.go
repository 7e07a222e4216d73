package patient

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Patient maps to the patients table. Removal is a soft deactivation.
type Patient struct {
	ID           uuid.UUID `db:"id" json:"_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Phone        string    `db:"phone" json:"phone"`
	Address      Address   `json:"address"`
	Gender       string    `db:"gender" json:"gender"`
	DOB          string    `db:"dob" json:"dob"`
	Image        string    `db:"image" json:"image"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Summary is the patient data embedded in appointment listings.
type Summary struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
	DOB   string    `json:"dob,omitempty"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type ProfileUpdate struct {
	Name    *string  `json:"name" validate:"omitempty,min=1,max=120"`
	Phone   *string  `json:"phone" validate:"omitempty,max=32"`
	Address *Address `json:"address"`
	Gender  *string  `json:"gender" validate:"omitempty,oneof=Male Female Other 'Not Selected'"`
	DOB     *string  `json:"dob" validate:"omitempty,slotdate"`
	Image   *string  `json:"image"`
}
