package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinicbook/internal/domain/doctor"
	"github.com/clinicbook/clinicbook/internal/platform/db"
	"github.com/clinicbook/clinicbook/pkg/clinictime"
)

const activeSlotConstraint = "appointments_active_slot_key"

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type appointmentRepoPG struct{ base queryable }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &appointmentRepoPG{base: pool} }

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.base
}

const apptCols = `a.id, a.doctor_id, a.patient_id, a.slot_date, a.slot_time, a.fee, a.cancelled,
	a.is_completed, a.payment_confirmed, a.cancelled_by, a.cancelled_at, a.completed_at,
	a.created_at, a.updated_at`

const viewCols = apptCols + `, d.name, d.image, d.speciality, d.fee, p.name, p.image, p.dob`

const viewFrom = ` FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN patients p ON p.id = a.patient_id`

// slotArgs converts normalized date and time strings into column values.
func slotArgs(date, clock string) (time.Time, int, error) {
	d, err := clinictime.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, err
	}
	c, err := clinictime.ParseClock(clock)
	if err != nil {
		return time.Time{}, 0, err
	}
	return d, int(c), nil
}

func appointmentDest(a *Appointment, slotDate *time.Time, slotTime *int) []interface{} {
	return []interface{}{&a.ID, &a.DoctorID, &a.PatientID, slotDate, slotTime, &a.Fee,
		&a.Cancelled, &a.IsCompleted, &a.PaymentConfirmed, &a.CancelledBy, &a.CancelledAt,
		&a.CompletedAt, &a.CreatedAt, &a.UpdatedAt}
}

func finishSlot(a *Appointment, slotDate time.Time, slotTime int) {
	a.SlotDate = slotDate.Format(clinictime.DateLayout)
	a.SlotTime = clinictime.Clock(slotTime).String()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a        Appointment
		slotDate time.Time
		slotTime int
	)
	if err := row.Scan(appointmentDest(&a, &slotDate, &slotTime)...); err != nil {
		return nil, err
	}
	finishSlot(&a, slotDate, slotTime)
	return &a, nil
}

func scanView(row pgx.Row) (*View, error) {
	var (
		v        = View{Appointment: &Appointment{}}
		slotDate time.Time
		slotTime int
	)
	dest := appointmentDest(v.Appointment, &slotDate, &slotTime)
	dest = append(dest, &v.DocData.Name, &v.DocData.Image, &v.DocData.Speciality, &v.DocData.Fee,
		&v.UserData.Name, &v.UserData.Image, &v.UserData.DOB)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finishSlot(v.Appointment, slotDate, slotTime)
	v.DocData.ID = v.DoctorID
	v.UserData.ID = v.PatientID
	return &v, nil
}

// Insert only succeeds for an active patient. The share lock on the patient
// row orders the insert against a concurrent deactivation.
func (r *appointmentRepoPG) Insert(ctx context.Context, a *Appointment) error {
	slotDate, slotTime, err := slotArgs(a.SlotDate, a.SlotTime)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	a.ID = uuid.New()
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, slot_date, slot_time, fee)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM patients WHERE id = $3 AND active FOR SHARE)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, slotDate, slotTime, a.Fee,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return nil
	case db.IsNotFound(err):
		return ErrPatientNotFound
	case db.IsUniqueViolation(err, activeSlotConstraint):
		return ErrSlotTaken
	case errors.As(err, &pgErr) && pgErr.Code == db.CodeForeignKeyViolation:
		return doctor.ErrNotFound
	default:
		return err
	}
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointments a WHERE a.id = $1`, id))
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *appointmentRepoPG) BookedTimes(ctx context.Context, doctorID uuid.UUID, date string) ([]string, error) {
	day, err := clinictime.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT slot_time FROM appointments
		WHERE doctor_id = $1 AND slot_date = $2 AND NOT cancelled
		ORDER BY slot_time`, doctorID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t int
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, clinictime.Clock(t).String())
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) transition(ctx context.Context, sql string, args ...interface{}) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, sql, args...))
	if db.IsNotFound(err) {
		return nil, ErrStaleWrite
	}
	return a, err
}

func (r *appointmentRepoPG) MarkCancelled(ctx context.Context, id uuid.UUID, by string, at time.Time) (*Appointment, error) {
	return r.transition(ctx, `
		UPDATE appointments a SET cancelled = TRUE, cancelled_by = $2, cancelled_at = $3, updated_at = NOW()
		WHERE a.id = $1 AND NOT a.cancelled AND NOT a.is_completed
		RETURNING `+apptCols, id, by, at)
}

func (r *appointmentRepoPG) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, error) {
	return r.transition(ctx, `
		UPDATE appointments a SET is_completed = TRUE, completed_at = $2, updated_at = NOW()
		WHERE a.id = $1 AND NOT a.cancelled AND NOT a.is_completed
		RETURNING `+apptCols, id, at)
}

func (r *appointmentRepoPG) MarkPaid(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.transition(ctx, `
		UPDATE appointments a SET payment_confirmed = TRUE, updated_at = NOW()
		WHERE a.id = $1 AND NOT a.cancelled AND NOT a.payment_confirmed
		RETURNING `+apptCols, id)
}

func (r *appointmentRepoPG) listViews(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*View, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments a`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	items, err := r.queryViews(ctx, where, args, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// queryViews reads one page, newest first, without counting.
func (r *appointmentRepoPG) queryViews(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*View, error) {
	n := len(args)
	q := `SELECT ` + viewCols + viewFrom + where +
		fmt.Sprintf(` ORDER BY a.created_at DESC, a.id LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// ListLatest feeds the dashboards and skips the total.
func (r *appointmentRepoPG) ListLatest(ctx context.Context, n int) ([]*View, error) {
	return r.queryViews(ctx, ``, nil, n, 0)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*View, int, error) {
	return r.listViews(ctx, ` WHERE a.patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*View, int, error) {
	return r.listViews(ctx, ` WHERE a.doctor_id = $1`, []interface{}{doctorID}, limit, offset)
}

func (r *appointmentRepoPG) ListAll(ctx context.Context, limit, offset int) ([]*View, int, error) {
	return r.listViews(ctx, ``, nil, limit, offset)
}

func (r *appointmentRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) DoctorStats(ctx context.Context, doctorID uuid.UUID) (DoctorStats, error) {
	var s DoctorStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(fee) FILTER (WHERE NOT cancelled AND (is_completed OR payment_confirmed)), 0)::bigint,
			COUNT(*), COUNT(DISTINCT patient_id)
		FROM appointments WHERE doctor_id = $1`, doctorID,
	).Scan(&s.Earnings, &s.Appointments, &s.Patients)
	return s, err
}
