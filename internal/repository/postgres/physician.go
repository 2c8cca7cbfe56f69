package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

type physicianRepository struct {
	db *sqlx.DB
}

func NewPhysicianRepository(db *sqlx.DB) repository.PhysicianRepository {
	return &physicianRepository{db: db}
}

func (r *physicianRepository) Create(ctx context.Context, physician *model.Physician) error {
	query := `
		INSERT INTO physicians (
			id, npi, first_name, middle_name, last_name, suffix, date_of_birth,
			ssn_last4, email, phone_numbers, address_line1, address_line2, city,
			state, zip_code, specialty, status, emergency_contact, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`
	physician.CreatedAt = time.Now()
	physician.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		physician.ID,
		physician.NPI,
		physician.FirstName,
		physician.MiddleName,
		physician.LastName,
		physician.Suffix,
		physician.DateOfBirth,
		physician.SSNLast4,
		physician.Email,
		physician.PhoneNumbers,
		physician.AddressLine1,
		physician.AddressLine2,
		physician.City,
		physician.State,
		physician.ZipCode,
		physician.Specialty,
		physician.Status,
		physician.EmergencyContactJSON,
		physician.CreatedAt,
		physician.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create physician: %w", err)
	}
	return nil
}

func (r *physicianRepository) Get(ctx context.Context, id uuid.UUID) (*model.Physician, error) {
	query := `SELECT * FROM physicians WHERE id = $1 AND deleted_at IS NULL`
	var physician model.Physician
	err := r.db.GetContext(ctx, &physician, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get physician: %w", err)
	}
	return &physician, nil
}

func (r *physicianRepository) GetByNPI(ctx context.Context, npi string) (*model.Physician, error) {
	query := `SELECT * FROM physicians WHERE npi = $1 AND deleted_at IS NULL`
	var physician model.Physician
	err := r.db.GetContext(ctx, &physician, query, npi)
	if err != nil {
		return nil, fmt.Errorf("failed to get physician by NPI: %w", err)
	}
	return &physician, nil
}

func (r *physicianRepository) Update(ctx context.Context, physician *model.Physician) error {
	query := `
		UPDATE physicians SET
			first_name = $1, middle_name = $2, last_name = $3, suffix = $4,
			email = $5, phone_numbers = $6, address_line1 = $7, address_line2 = $8,
			city = $9, state = $10, zip_code = $11, specialty = $12, status = $13,
			emergency_contact = $14, updated_at = $15
		WHERE id = $16 AND deleted_at IS NULL
	`
	physician.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		physician.FirstName,
		physician.MiddleName,
		physician.LastName,
		physician.Suffix,
		physician.Email,
		physician.PhoneNumbers,
		physician.AddressLine1,
		physician.AddressLine2,
		physician.City,
		physician.State,
		physician.ZipCode,
		physician.Specialty,
		physician.Status,
		physician.EmergencyContactJSON,
		physician.UpdatedAt,
		physician.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update physician: %w", err)
	}
	return nil
}

func (r *physicianRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE physicians SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	return err
}

func (r *physicianRepository) List(ctx context.Context, filters *model.PhysicianFilters) ([]*model.Physician, error) {
	query := `SELECT * FROM physicians WHERE deleted_at IS NULL`
	args := []interface{}{}
	idx := 1

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}
	if filters.Specialty != "" {
		query += fmt.Sprintf(" AND specialty = $%d", idx)
		args = append(args, filters.Specialty)
		idx++
	}
	if filters.State != "" {
		query += fmt.Sprintf(" AND state = $%d", idx)
		args = append(args, filters.State)
		idx++
	}
	if filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR npi LIKE $%d)", idx, idx, idx)
		args = append(args, "%"+filters.SearchTerm+"%")
		idx++
	}

	query += fmt.Sprintf(" ORDER BY last_name, first_name LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.Limit(), filters.Offset())

	var physicians []*model.Physician
	err := r.db.SelectContext(ctx, &physicians, query, args...)
	return physicians, err
}
