package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/carehub/patienthub/internal/domain/patient"
	"github.com/carehub/patienthub/internal/domain/user"
	"github.com/carehub/patienthub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patientViewQuery = `
	SELECT p.id,
		p.name,
		p.email,
		p.phone,
		p.age,
		p.diagnosis,
		p.treatment,
		u.name  AS owner_name,
		u.role  AS owner_role,
		p.created_at,
		p.updated_at
	FROM patients p
	JOIN users u ON u.id = p.created_by
`

type PatientsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPatientsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PatientsRepo {
	return &PatientsRepo{
		pool: pool,
		prom: prom,
	}
}

func (r *PatientsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanView(row pgx.Row) (patient.View, error) {
	var v patient.View
	var ownerRole user.Role

	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Email,
		&v.Phone,
		&v.Age,
		&v.Diagnosis,
		&v.Treatment,
		&v.CreatedBy,
		&ownerRole,
		&v.CreatedAt,
		&v.UpdatedAt,
	)

	if err != nil {
		return patient.View{}, err
	}

	v.CreatedByRole = ownerRole.Label()

	return v, nil
}

// Create inserts a patient owned by createdBy. Ownership is a column value
// fixed here, once; there is no update path for it.
func (r *PatientsRepo) Create(ctx context.Context, req patient.CreatePatientRequest, createdBy string) (patient.Patient, error) {
	now := time.Now().UTC()

	p := patient.Patient{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Age:       *req.Age,
		Diagnosis: req.Diagnosis,
		Treatment: req.Treatment,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("patients.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO patients (id, name, email, phone, age, diagnosis, treatment, created_by, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			p.ID, p.Name, p.Email, p.Phone, p.Age, p.Diagnosis, p.Treatment, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return patient.Patient{}, err
	}

	return p, nil
}

// List returns patient views, newest first. A nil ownedBy returns every
// row; otherwise only rows created by that user are ever read. The scoping
// happens in the query, not by filtering fetched rows.
func (r *PatientsRepo) List(ctx context.Context, ownedBy *string) (views []patient.View, err error) {
	query := patientViewQuery
	args := []interface{}{}

	if ownedBy != nil {
		query += ` WHERE p.created_by = $1`
		args = append(args, *ownedBy)
	}

	query += ` ORDER BY p.created_at DESC, p.id DESC`

	var rows pgx.Rows

	err = r.observe("patients.list", func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return
	}

	defer rows.Close()

	views = make([]patient.View, 0)

	for rows.Next() {
		v, e := scanView(rows)

		if e != nil {
			err = e
			return
		}

		views = append(views, v)
	}

	err = rows.Err()

	return
}

// GetByID returns the raw record, including the owning user id the access
// policy needs.
func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patient.Patient, error) {
	var p patient.Patient

	err := r.observe("patients.get_by_id", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, name, email, phone, age, diagnosis, treatment, created_by, created_at, updated_at
			 FROM patients
			 WHERE id = $1`,
			id,
		).Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Age, &p.Diagnosis, &p.Treatment, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return patient.Patient{}, patient.ErrNotFound
		}

		return patient.Patient{}, err
	}

	return p, nil
}

func (r *PatientsRepo) ViewByID(ctx context.Context, id string) (patient.View, error) {
	var v patient.View

	err := r.observe("patients.view_by_id", func() error {
		var e error
		v, e = scanView(r.pool.QueryRow(ctx, patientViewQuery+` WHERE p.id = $1`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return patient.View{}, patient.ErrNotFound
		}

		return patient.View{}, err
	}

	return v, nil
}

// Update writes the mutable columns of p and returns the fresh view.
// created_by is deliberately absent from the SET list.
func (r *PatientsRepo) Update(ctx context.Context, p patient.Patient) (patient.View, error) {
	err := r.observe("patients.update", func() error {
		tag, e := r.pool.Exec(ctx,
			`UPDATE patients
			 SET name = $2,
				email = $3,
				phone = $4,
				age = $5,
				diagnosis = $6,
				treatment = $7,
				updated_at = NOW()
			 WHERE id = $1`,
			p.ID, p.Name, p.Email, p.Phone, p.Age, p.Diagnosis, p.Treatment,
		)

		if e != nil {
			return e
		}

		if tag.RowsAffected() == 0 {
			return patient.ErrNotFound
		}

		return nil
	})

	if err != nil {
		return patient.View{}, err
	}

	return r.ViewByID(ctx, p.ID)
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("patients.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return patient.ErrNotFound
	}

	return nil
}
