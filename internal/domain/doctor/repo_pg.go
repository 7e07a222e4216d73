package doctor

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/clinicbook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, name, email, password_hash, image, speciality, degree, experience, about,
	fee, address_line1, address_line2, available, active, slot_minutes, daily_capacity,
	working_hours, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.PasswordHash, &d.Image, &d.Speciality,
		&d.Degree, &d.Experience, &d.About, &d.Fee, &d.Address.Line1, &d.Address.Line2,
		&d.Available, &d.Active, &d.SlotMinutes, &d.DailyCapacity, &d.WorkingHours,
		&d.CreatedAt, &d.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, name, email, password_hash, image, speciality, degree, experience,
			about, fee, address_line1, address_line2, available, active, slot_minutes,
			daily_capacity, working_hours)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Email, d.PasswordHash, d.Image, d.Speciality, d.Degree, d.Experience,
		d.About, d.Fee, d.Address.Line1, d.Address.Line2, d.Available, d.Active, d.SlotMinutes,
		d.DailyCapacity, d.WorkingHours,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err, "doctors_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE lower(email) = lower($1)`, email))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET image=$2, about=$3, fee=$4, address_line1=$5, address_line2=$6,
			available=$7, slot_minutes=$8, daily_capacity=$9, working_hours=$10, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Image, d.About, d.Fee, d.Address.Line1, d.Address.Line2,
		d.Available, d.SlotMinutes, d.DailyCapacity, d.WorkingHours)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) ToggleAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	var available bool
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET available = NOT available, updated_at = NOW()
		WHERE id = $1 RETURNING available`, id).Scan(&available)
	if db.IsNotFound(err) {
		return false, ErrNotFound
	}
	return available, err
}

func (r *doctorRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET active = FALSE, available = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Doctor, int, error) {
	where := ` WHERE active`
	if includeInactive {
		where = ``
	}
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctors`+where+
		` ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE active`).Scan(&n)
	return n, err
}
