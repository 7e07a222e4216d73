package doctor

import (
	"time"

	"github.com/google/uuid"
)

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// Doctor maps to the doctors table. Doctors are deactivated, never deleted.
type Doctor struct {
	ID            uuid.UUID      `db:"id" json:"_id"`
	Name          string         `db:"name" json:"name"`
	Email         string         `db:"email" json:"email"`
	PasswordHash  string         `db:"password_hash" json:"-"`
	Image         string         `db:"image" json:"image"`
	Speciality    string         `db:"speciality" json:"speciality"`
	Degree        string         `db:"degree" json:"degree"`
	Experience    string         `db:"experience" json:"experience"`
	About         string         `db:"about" json:"about"`
	Fee           int64          `db:"fee" json:"fee"`
	Address       Address        `json:"address"`
	Available     bool           `db:"available" json:"available"`
	Active        bool           `db:"active" json:"active"`
	SlotMinutes   int            `db:"slot_minutes" json:"slotMinutes"`
	DailyCapacity int            `db:"daily_capacity" json:"dailyCapacity"`
	WorkingHours  WeeklyTemplate `db:"working_hours" json:"workingHours"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}

// Bookable reports whether new appointments may be placed with the doctor.
func (d *Doctor) Bookable() error {
	if !d.Active || !d.Available {
		return ErrUnavailable
	}
	return nil
}

// Summary is the doctor data embedded in appointment listings.
type Summary struct {
	ID         uuid.UUID `json:"_id"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	Speciality string    `json:"speciality"`
	Fee        int64     `json:"fee"`
}

func (d *Doctor) Summary() Summary {
	return Summary{ID: d.ID, Name: d.Name, Image: d.Image, Speciality: d.Speciality, Fee: d.Fee}
}

// AddInput is what an admin submits to register a doctor.
type AddInput struct {
	Name          string          `json:"name" validate:"required,max=120"`
	Email         string          `json:"email" validate:"required,email"`
	Password      string          `json:"password" validate:"required,min=8"`
	Image         string          `json:"image"`
	Speciality    string          `json:"speciality" validate:"required"`
	Degree        string          `json:"degree"`
	Experience    string          `json:"experience"`
	About         string          `json:"about"`
	Fee           int64           `json:"fee" validate:"min=0"`
	Address       Address         `json:"address"`
	SlotMinutes   int             `json:"slotMinutes" validate:"omitempty,min=5,max=240"`
	DailyCapacity int             `json:"dailyCapacity" validate:"min=0"`
	WorkingHours  *WeeklyTemplate `json:"workingHours"`
}

// ProfileUpdate carries the fields a doctor may change on their own profile.
// Nil fields are left untouched. Changing the fee never touches existing
// appointments.
type ProfileUpdate struct {
	Fee           *int64          `json:"fee" validate:"omitempty,min=0"`
	Address       *Address        `json:"address"`
	Available     *bool           `json:"available"`
	About         *string         `json:"about"`
	Image         *string         `json:"image"`
	SlotMinutes   *int            `json:"slotMinutes" validate:"omitempty,min=5,max=240"`
	DailyCapacity *int            `json:"dailyCapacity" validate:"omitempty,min=0"`
	WorkingHours  *WeeklyTemplate `json:"workingHours"`
}
