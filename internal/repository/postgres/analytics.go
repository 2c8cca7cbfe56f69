package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

type analyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) ComplianceSummary(ctx context.Context, now time.Time) (*model.ComplianceSummary, error) {
	var summary model.ComplianceSummary

	err := r.db.GetContext(ctx, &summary.TotalPhysicians,
		`SELECT COUNT(*) FROM physicians WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to count physicians: %w", err)
	}

	creds, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	summary.TotalCredentials = len(creds)
	for _, c := range creds {
		status := expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now)
		switch status {
		case model.CredentialStatusActive:
			summary.Active++
		case model.CredentialStatusRenewalRequired:
			summary.RenewalRequired++
		case model.CredentialStatusExpiringSoon:
			summary.ExpiringSoon++
		case model.CredentialStatusExpired:
			summary.Expired++
		}
	}
	if summary.TotalCredentials > 0 {
		compliant := summary.TotalCredentials - summary.Expired
		summary.CompliancePercentage = float64(compliant) / float64(summary.TotalCredentials) * 100
	}
	return &summary, nil
}

func (r *analyticsRepository) RenewalTrends(ctx context.Context, months int) ([]*model.RenewalTrend, error) {
	query := `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*) AS opened,
		       COUNT(*) FILTER (WHERE status = 'approved') AS approved,
		       COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
		       COUNT(*) FILTER (WHERE status = 'expired') AS expired
		FROM renewal_workflows
		WHERE created_at >= date_trunc('month', NOW()) - ($1 || ' months')::interval
		GROUP BY 1
		ORDER BY 1
	`
	var trends []*model.RenewalTrend
	err := r.db.SelectContext(ctx, &trends, query, months)
	if err != nil {
		return nil, fmt.Errorf("failed to load renewal trends: %w", err)
	}
	return trends, nil
}

func (r *analyticsRepository) ExpirationForecast(ctx context.Context, from time.Time, months int) ([]*model.ExpirationForecastBucket, error) {
	cutoff := from.AddDate(0, months, 0)
	creds, err := r.ListExpiringBetween(ctx, from, cutoff)
	if err != nil {
		return nil, err
	}

	buckets := make([]*model.ExpirationForecastBucket, months)
	start := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := range buckets {
		month := start.AddDate(0, i, 0)
		buckets[i] = &model.ExpirationForecastBucket{
			Month:        month.Format("2006-01"),
			Start:        month,
			ByEntityType: make(map[string]int),
		}
	}

	for _, c := range creds {
		offset := (c.ExpirationDate.Year()-start.Year())*12 + int(c.ExpirationDate.Month()-start.Month())
		if offset < 0 || offset >= months {
			continue
		}
		buckets[offset].Total++
		buckets[offset].ByEntityType[string(c.EntityType)]++
	}
	return buckets, nil
}

func (r *analyticsRepository) ProviderMetrics(ctx context.Context, now time.Time) ([]*model.ProviderMetrics, error) {
	creds, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}

	byPhysician := make(map[string]*model.ProviderMetrics)
	for _, c := range creds {
		m, ok := byPhysician[c.PhysicianID.String()]
		if !ok {
			m = &model.ProviderMetrics{
				PhysicianID:   c.PhysicianID.String(),
				PhysicianName: c.PhysicianName,
			}
			byPhysician[c.PhysicianID.String()] = m
		}
		m.TotalCredentials++
		switch expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now) {
		case model.CredentialStatusExpiringSoon:
			m.ExpiringSoon++
		case model.CredentialStatusExpired:
			m.Expired++
		}
	}

	type openCount struct {
		PhysicianID string `db:"physician_id"`
		Count       int    `db:"count"`
	}
	var open []openCount
	err = r.db.SelectContext(ctx, &open, `
		SELECT physician_id::text AS physician_id, COUNT(*) AS count
		FROM renewal_workflows
		WHERE status NOT IN ('approved', 'expired')
		GROUP BY physician_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count open workflows: %w", err)
	}
	for _, o := range open {
		if m, ok := byPhysician[o.PhysicianID]; ok {
			m.OpenWorkflows = o.Count
		}
	}

	metrics := make([]*model.ProviderMetrics, 0, len(byPhysician))
	for _, m := range byPhysician {
		if m.TotalCredentials > 0 {
			m.ComplianceScore = float64(m.TotalCredentials-m.Expired) / float64(m.TotalCredentials) * 100
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

func (r *analyticsRepository) CredentialDistribution(ctx context.Context) (*model.CredentialDistribution, error) {
	creds, err := r.listAll(ctx)
	if err != nil {
		return nil, err
	}
	dist := &model.CredentialDistribution{
		ByEntityType: make(map[string]int),
		ByState:      make(map[string]int),
		ByStatus:     make(map[string]int),
	}
	for _, c := range creds {
		dist.ByEntityType[string(c.EntityType)]++
		if c.State != "" {
			dist.ByState[c.State]++
		}
		dist.ByStatus[c.Status]++
	}
	return dist, nil
}

func (r *analyticsRepository) ExportRows(ctx context.Context) ([]*model.AnalyticsExportRow, error) {
	query := `
		SELECT physician_name, npi, entity_type, identifier, state, expiration_date, status
		FROM (
			SELECT creds.*, p.npi
			FROM (` + expiringUnion + `) creds
			JOIN physicians p ON p.id = creds.physician_id
		) rows
		ORDER BY expiration_date
	`
	var rows []*model.AnalyticsExportRow
	err := r.db.SelectContext(ctx, &rows, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load export rows: %w", err)
	}
	return rows, nil
}

func (r *analyticsRepository) listAll(ctx context.Context) ([]*model.ExpiringCredential, error) {
	var creds []*model.ExpiringCredential
	err := r.db.SelectContext(ctx, &creds, expiringUnion)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	return creds, nil
}

// ListExpiringBetween is used by the forecast; it bounds both ends of the
// window, unlike CredentialRepository.ListExpiring.
func (r *analyticsRepository) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]*model.ExpiringCredential, error) {
	query := `
		SELECT * FROM (` + expiringUnion + `) creds
		WHERE expiration_date >= $1 AND expiration_date < $2
		ORDER BY expiration_date
	`
	var creds []*model.ExpiringCredential
	err := r.db.SelectContext(ctx, &creds, query, from, to)
	return creds, err
}
