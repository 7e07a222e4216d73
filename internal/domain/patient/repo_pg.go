package patient

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

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, name, email, password_hash, phone, address_line1, address_line2,
	gender, dob, image, active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.Phone, &p.Address.Line1,
		&p.Address.Line2, &p.Gender, &p.DOB, &p.Image, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, name, email, password_hash, phone, address_line1, address_line2,
			gender, dob, image, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Email, p.PasswordHash, p.Phone, p.Address.Line1, p.Address.Line2,
		p.Gender, p.DOB, p.Image, p.Active,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err, "patients_email_key") {
		return ErrEmailTaken
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE lower(email) = lower($1)`, email))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, phone=$3, address_line1=$4, address_line2=$5, gender=$6,
			dob=$7, image=$8, updated_at=NOW()
		WHERE id = $1 AND active`,
		p.ID, p.Name, p.Phone, p.Address.Line1, p.Address.Line2, p.Gender, p.DOB, p.Image)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate locks the patient row so that no booking (which takes a share
// lock on the same row) can slip in between the check and the update.
func (r *patientRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		var active bool
		err := r.conn(ctx).QueryRow(ctx, `SELECT active FROM patients WHERE id = $1 FOR UPDATE`, id).Scan(&active)
		if db.IsNotFound(err) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !active {
			return nil
		}

		var open int
		if err := r.conn(ctx).QueryRow(ctx, `
			SELECT COUNT(*) FROM appointments
			WHERE patient_id = $1 AND NOT cancelled AND NOT is_completed`, id).Scan(&open); err != nil {
			return err
		}
		if open > 0 {
			return ErrHasActiveAppointments
		}

		_, err = r.conn(ctx).Exec(ctx, `UPDATE patients SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		return err
	})
}

func (r *patientRepoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE active`).Scan(&n)
	return n, err
}
