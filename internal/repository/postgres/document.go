package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	err := r.db.GetContext(ctx, &doc, `SELECT * FROM documents WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, physicianID uuid.UUID, filters *model.DocumentFilters) ([]*model.Document, error) {
	query := `SELECT * FROM documents WHERE physician_id = $1`
	args := []interface{}{physicianID}
	idx := 2

	if filters.DocumentType != "" {
		query += fmt.Sprintf(" AND document_type = $%d", idx)
		args = append(args, filters.DocumentType)
		idx++
	}
	if !filters.IncludeArchived {
		query += " AND is_current"
	}
	query += " ORDER BY document_type, version DESC"

	var docs []*model.Document
	err := r.db.SelectContext(ctx, &docs, query, args...)
	return docs, err
}

// RegisterVersion archives the previous current version and inserts the new
// row in one transaction, so exactly one row per (physician, document_type)
// is current at any point.
func (r *documentRepository) RegisterVersion(ctx context.Context, doc *model.Document) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prevVersion sql.NullInt64
	err = tx.GetContext(ctx, &prevVersion, `
		SELECT MAX(version) FROM documents
		WHERE physician_id = $1 AND document_type = $2
	`, doc.PhysicianID, doc.DocumentType)
	if err != nil {
		return fmt.Errorf("failed to read current version: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET is_current = FALSE, updated_at = $1
		WHERE physician_id = $2 AND document_type = $3 AND is_current
	`, time.Now(), doc.PhysicianID, doc.DocumentType)
	if err != nil {
		return fmt.Errorf("failed to archive previous version: %w", err)
	}

	doc.Version = int(prevVersion.Int64) + 1
	doc.IsCurrent = true
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (
			id, physician_id, document_type, file_name, storage_key, file_size,
			mime_type, version, is_current, uploaded_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		doc.ID, doc.PhysicianID, doc.DocumentType, doc.FileName, doc.StorageKey,
		doc.FileSize, doc.MimeType, doc.Version, doc.IsCurrent, doc.UploadedBy,
		doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	return tx.Commit()
}
