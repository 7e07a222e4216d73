package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/clinicbook/internal/domain/doctor"
	"github.com/clinicbook/clinicbook/internal/domain/patient"
	"github.com/clinicbook/clinicbook/internal/platform/auth"
)

const (
	SlotOpen   = "open"
	SlotBooked = "booked"
)

// Slot is one bookable (doctor, date, time) coordinate. Slots are derived from
// the doctor's weekly template and are never stored.
type Slot struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	State string `json:"state"`
}

// Appointment maps to the appointments table. Appointments are never deleted;
// cancellation is a state change.
type Appointment struct {
	ID               uuid.UUID  `db:"id" json:"_id"`
	DoctorID         uuid.UUID  `db:"doctor_id" json:"doctorId"`
	PatientID        uuid.UUID  `db:"patient_id" json:"patientId"`
	SlotDate         string     `db:"slot_date" json:"slotDate"`
	SlotTime         string     `db:"slot_time" json:"slotTime"`
	Fee              int64      `db:"fee" json:"fee"`
	Cancelled        bool       `db:"cancelled" json:"cancelled"`
	IsCompleted      bool       `db:"is_completed" json:"isCompleted"`
	PaymentConfirmed bool       `db:"payment_confirmed" json:"paymentConfirmed"`
	CancelledBy      string     `db:"cancelled_by" json:"cancelledBy,omitempty"`
	CancelledAt      *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// Key is the lock key of the appointment's slot.
func (a *Appointment) Key() string {
	return Key(a.DoctorID, a.SlotDate, a.SlotTime)
}

// Key identifies a slot: "doctorId|YYYY-MM-DD|HH:MM". date and clock must be
// normalized.
func Key(doctorID uuid.UUID, date, clock string) string {
	return doctorID.String() + "|" + date + "|" + clock
}

// DayKey locks a whole doctor day. Only bookings against a daily capacity
// take it, always before the slot key.
func DayKey(doctorID uuid.UUID, date string) string {
	return doctorID.String() + "|" + date
}

// View is an appointment joined with the display data the consoles show.
type View struct {
	*Appointment
	DocData  doctor.Summary  `json:"docData"`
	UserData patient.Summary `json:"userData"`
}

// Actor is whoever is changing an appointment.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func ActorFromSession(s auth.Session) Actor {
	return Actor{ID: s.ActorID, Role: s.Role}
}

// DoctorStats feeds the doctor dashboard. Earnings sum the fees of completed
// or paid appointments.
type DoctorStats struct {
	Earnings     int64 `json:"earnings"`
	Appointments int   `json:"appointments"`
	Patients     int   `json:"patients"`
}
