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

type educationRepository struct {
	db *sqlx.DB
}

func NewEducationRepository(db *sqlx.DB) repository.EducationRepository {
	return &educationRepository{db: db}
}

func (r *educationRepository) CreateEducation(ctx context.Context, e *model.Education) error {
	query := `
		INSERT INTO education (id, physician_id, institution, degree, field_of_study, start_date, end_date, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.PhysicianID, e.Institution, e.Degree, e.FieldOfStudy, e.StartDate, e.EndDate, e.Verified, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create education record: %w", err)
	}
	return nil
}

func (r *educationRepository) ListEducation(ctx context.Context, physicianID uuid.UUID) ([]*model.Education, error) {
	var records []*model.Education
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM education WHERE physician_id = $1 ORDER BY start_date DESC`, physicianID)
	return records, err
}

func (r *educationRepository) UpdateEducation(ctx context.Context, e *model.Education) error {
	query := `
		UPDATE education SET institution = $1, degree = $2, field_of_study = $3,
			start_date = $4, end_date = $5, verified = $6, updated_at = $7
		WHERE id = $8
	`
	e.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		e.Institution, e.Degree, e.FieldOfStudy, e.StartDate, e.EndDate, e.Verified, e.UpdatedAt, e.ID)
	return err
}

func (r *educationRepository) CreateWorkHistory(ctx context.Context, w *model.WorkHistory) error {
	query := `
		INSERT INTO work_history (id, physician_id, employer, position, start_date, end_date, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	w.CreatedAt = time.Now()
	w.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.PhysicianID, w.Employer, w.Position, w.StartDate, w.EndDate, w.Verified, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create work history record: %w", err)
	}
	return nil
}

func (r *educationRepository) ListWorkHistory(ctx context.Context, physicianID uuid.UUID) ([]*model.WorkHistory, error) {
	var records []*model.WorkHistory
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM work_history WHERE physician_id = $1 ORDER BY start_date DESC`, physicianID)
	return records, err
}

func (r *educationRepository) UpdateWorkHistory(ctx context.Context, w *model.WorkHistory) error {
	query := `
		UPDATE work_history SET employer = $1, position = $2, start_date = $3, end_date = $4, verified = $5, updated_at = $6
		WHERE id = $7
	`
	w.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		w.Employer, w.Position, w.StartDate, w.EndDate, w.Verified, w.UpdatedAt, w.ID)
	return err
}
