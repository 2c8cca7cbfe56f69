package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

type credentialRepository struct {
	db *sqlx.DB
}

func NewCredentialRepository(db *sqlx.DB) repository.CredentialRepository {
	return &credentialRepository{db: db}
}

// credentialTables maps an entity type to its table and identifying column.
var credentialTables = map[model.EntityType]struct {
	table      string
	identifier string
}{
	model.EntityTypeLicense:       {"licenses", "license_number"},
	model.EntityTypeDEA:           {"dea_registrations", "registration_number"},
	model.EntityTypeCSR:           {"csr_licenses", "license_number"},
	model.EntityTypeCertification: {"certifications", "certificate_number"},
}

func (r *credentialRepository) CreateLicense(ctx context.Context, l *model.License) error {
	query := `
		INSERT INTO licenses (id, physician_id, license_number, state, issue_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	l.CreatedAt = time.Now()
	l.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.PhysicianID, l.LicenseNumber, l.State, l.IssueDate, l.ExpirationDate, l.Status, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create license: %w", err)
	}
	return nil
}

func (r *credentialRepository) GetLicense(ctx context.Context, id uuid.UUID) (*model.License, error) {
	var l model.License
	err := r.db.GetContext(ctx, &l, `SELECT * FROM licenses WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}
	return &l, nil
}

func (r *credentialRepository) ListLicenses(ctx context.Context, physicianID uuid.UUID) ([]*model.License, error) {
	var licenses []*model.License
	err := r.db.SelectContext(ctx, &licenses,
		`SELECT * FROM licenses WHERE physician_id = $1 ORDER BY expiration_date`, physicianID)
	return licenses, err
}

func (r *credentialRepository) UpdateLicense(ctx context.Context, l *model.License) error {
	query := `
		UPDATE licenses SET issue_date = $1, expiration_date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	l.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, l.IssueDate, l.ExpirationDate, l.Status, l.UpdatedAt, l.ID)
	return err
}

func (r *credentialRepository) CreateDEA(ctx context.Context, d *model.DEARegistration) error {
	query := `
		INSERT INTO dea_registrations (id, physician_id, registration_number, state, schedules, mate_attested, issue_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.PhysicianID, d.RegistrationNumber, d.State, d.Schedules, d.MATEAttested,
		d.IssueDate, d.ExpirationDate, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create DEA registration: %w", err)
	}
	return nil
}

func (r *credentialRepository) GetDEA(ctx context.Context, id uuid.UUID) (*model.DEARegistration, error) {
	var d model.DEARegistration
	err := r.db.GetContext(ctx, &d, `SELECT * FROM dea_registrations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get DEA registration: %w", err)
	}
	return &d, nil
}

func (r *credentialRepository) ListDEAs(ctx context.Context, physicianID uuid.UUID) ([]*model.DEARegistration, error) {
	var regs []*model.DEARegistration
	err := r.db.SelectContext(ctx, &regs,
		`SELECT * FROM dea_registrations WHERE physician_id = $1 ORDER BY expiration_date`, physicianID)
	return regs, err
}

func (r *credentialRepository) UpdateDEA(ctx context.Context, d *model.DEARegistration) error {
	query := `
		UPDATE dea_registrations SET issue_date = $1, expiration_date = $2, status = $3, mate_attested = $4, updated_at = $5
		WHERE id = $6
	`
	d.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, d.IssueDate, d.ExpirationDate, d.Status, d.MATEAttested, d.UpdatedAt, d.ID)
	return err
}

func (r *credentialRepository) CreateCSR(ctx context.Context, c *model.CSRLicense) error {
	query := `
		INSERT INTO csr_licenses (id, physician_id, license_number, state, issue_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.PhysicianID, c.LicenseNumber, c.State, c.IssueDate, c.ExpirationDate, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create CSR license: %w", err)
	}
	return nil
}

func (r *credentialRepository) GetCSR(ctx context.Context, id uuid.UUID) (*model.CSRLicense, error) {
	var c model.CSRLicense
	err := r.db.GetContext(ctx, &c, `SELECT * FROM csr_licenses WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get CSR license: %w", err)
	}
	return &c, nil
}

func (r *credentialRepository) ListCSRs(ctx context.Context, physicianID uuid.UUID) ([]*model.CSRLicense, error) {
	var csrs []*model.CSRLicense
	err := r.db.SelectContext(ctx, &csrs,
		`SELECT * FROM csr_licenses WHERE physician_id = $1 ORDER BY expiration_date`, physicianID)
	return csrs, err
}

func (r *credentialRepository) UpdateCSR(ctx context.Context, c *model.CSRLicense) error {
	query := `
		UPDATE csr_licenses SET issue_date = $1, expiration_date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, c.IssueDate, c.ExpirationDate, c.Status, c.UpdatedAt, c.ID)
	return err
}

func (r *credentialRepository) CreateCertification(ctx context.Context, c *model.Certification) error {
	query := `
		INSERT INTO certifications (id, physician_id, board_name, certifying_body, certification_type, certificate_number, issue_date, expiration_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.PhysicianID, c.BoardName, c.CertifyingBody, c.CertificationType, c.CertificateNumber,
		c.IssueDate, c.ExpirationDate, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create certification: %w", err)
	}
	return nil
}

func (r *credentialRepository) GetCertification(ctx context.Context, id uuid.UUID) (*model.Certification, error) {
	var c model.Certification
	err := r.db.GetContext(ctx, &c, `SELECT * FROM certifications WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get certification: %w", err)
	}
	return &c, nil
}

func (r *credentialRepository) ListCertifications(ctx context.Context, physicianID uuid.UUID) ([]*model.Certification, error) {
	var certs []*model.Certification
	err := r.db.SelectContext(ctx, &certs,
		`SELECT * FROM certifications WHERE physician_id = $1 ORDER BY expiration_date`, physicianID)
	return certs, err
}

func (r *credentialRepository) UpdateCertification(ctx context.Context, c *model.Certification) error {
	query := `
		UPDATE certifications SET issue_date = $1, expiration_date = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	c.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, c.IssueDate, c.ExpirationDate, c.Status, c.UpdatedAt, c.ID)
	return err
}

// expiringUnion merges the four credential tables into one shape, joined to
// the physician for display names.
const expiringUnion = `
	SELECT 'license' AS entity_type, l.id AS entity_id, l.physician_id,
	       p.first_name || ' ' || p.last_name AS physician_name,
	       l.license_number AS identifier, l.state, l.expiration_date, l.status
	FROM licenses l JOIN physicians p ON p.id = l.physician_id AND p.deleted_at IS NULL
	UNION ALL
	SELECT 'dea', d.id, d.physician_id,
	       p.first_name || ' ' || p.last_name,
	       d.registration_number, d.state, d.expiration_date, d.status
	FROM dea_registrations d JOIN physicians p ON p.id = d.physician_id AND p.deleted_at IS NULL
	UNION ALL
	SELECT 'csr', c.id, c.physician_id,
	       p.first_name || ' ' || p.last_name,
	       c.license_number, c.state, c.expiration_date, c.status
	FROM csr_licenses c JOIN physicians p ON p.id = c.physician_id AND p.deleted_at IS NULL
	UNION ALL
	SELECT 'certification', b.id, b.physician_id,
	       p.first_name || ' ' || p.last_name,
	       b.certificate_number, '', b.expiration_date, b.status
	FROM certifications b JOIN physicians p ON p.id = b.physician_id AND p.deleted_at IS NULL
`

func (r *credentialRepository) ListExpiring(ctx context.Context, cutoff time.Time) ([]*model.ExpiringCredential, error) {
	query := `
		SELECT * FROM (` + expiringUnion + `) creds
		WHERE expiration_date <= $1
		ORDER BY expiration_date
	`
	var creds []*model.ExpiringCredential
	err := r.db.SelectContext(ctx, &creds, query, cutoff)
	return creds, err
}

func (r *credentialRepository) MarkExpired(ctx context.Context, now time.Time) ([]*model.ExpiringCredential, error) {
	// Day granularity: a credential expiring today is still valid today.
	cutoff := expiry.StartOfDay(now)

	var expired []*model.ExpiringCredential
	for entityType, meta := range credentialTables {
		query := fmt.Sprintf(`
			UPDATE %s SET status = $1, updated_at = $2
			WHERE expiration_date < $3 AND status != $1
			RETURNING id, physician_id, %s AS identifier, expiration_date
		`, meta.table, meta.identifier)

		rows, err := r.db.QueryxContext(ctx, query, model.CredentialStatusExpired, time.Now(), cutoff)
		if err != nil {
			return nil, fmt.Errorf("failed to mark expired %s: %w", meta.table, err)
		}
		for rows.Next() {
			cred := model.ExpiringCredential{
				EntityType: entityType,
				Status:     string(model.CredentialStatusExpired),
			}
			if err := rows.Scan(&cred.EntityID, &cred.PhysicianID, &cred.Identifier, &cred.ExpirationDate); err != nil {
				rows.Close()
				return nil, err
			}
			expired = append(expired, &cred)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return expired, nil
}
