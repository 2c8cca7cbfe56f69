package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

const (
	cacheTTL        = 5 * time.Minute
	cleanupInterval = 15 * time.Minute

	keyComplianceSummary      = "compliance_summary"
	keyCredentialDistribution = "credential_distribution"
)

// Service answers aggregate questions about the credential population. The
// underlying queries scan whole tables, so results are cached briefly; the
// dashboards that call these endpoints poll far more often than the data
// changes.
type Service struct {
	repo  repository.AnalyticsRepository
	cache *cache.Cache
}

func NewService(repo repository.AnalyticsRepository) *Service {
	return &Service{
		repo:  repo,
		cache: cache.New(cacheTTL, cleanupInterval),
	}
}

func (s *Service) ComplianceSummary(ctx context.Context) (*model.ComplianceSummary, error) {
	if cached, found := s.cache.Get(keyComplianceSummary); found {
		return cached.(*model.ComplianceSummary), nil
	}

	summary, err := s.repo.ComplianceSummary(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to compute compliance summary: %w", err)
	}

	s.cache.Set(keyComplianceSummary, summary, cache.DefaultExpiration)
	return summary, nil
}

func (s *Service) RenewalTrends(ctx context.Context, months int) ([]*model.RenewalTrend, error) {
	if months <= 0 {
		months = 12
	}
	if months > 36 {
		months = 36
	}

	key := "renewal_trends:" + strconv.Itoa(months)
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.RenewalTrend), nil
	}

	trends, err := s.repo.RenewalTrends(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("failed to compute renewal trends: %w", err)
	}

	s.cache.Set(key, trends, cache.DefaultExpiration)
	return trends, nil
}

func (s *Service) ExpirationForecast(ctx context.Context, months int) ([]*model.ExpirationForecastBucket, error) {
	if months <= 0 {
		months = 12
	}
	if months > 24 {
		months = 24
	}

	key := "expiration_forecast:" + strconv.Itoa(months)
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.ExpirationForecastBucket), nil
	}

	forecast, err := s.repo.ExpirationForecast(ctx, time.Now(), months)
	if err != nil {
		return nil, fmt.Errorf("failed to compute expiration forecast: %w", err)
	}

	s.cache.Set(key, forecast, cache.DefaultExpiration)
	return forecast, nil
}

func (s *Service) ProviderMetrics(ctx context.Context) ([]*model.ProviderMetrics, error) {
	const key = "provider_metrics"
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.ProviderMetrics), nil
	}

	metrics, err := s.repo.ProviderMetrics(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to compute provider metrics: %w", err)
	}

	s.cache.Set(key, metrics, cache.DefaultExpiration)
	return metrics, nil
}

func (s *Service) CredentialDistribution(ctx context.Context) (*model.CredentialDistribution, error) {
	if cached, found := s.cache.Get(keyCredentialDistribution); found {
		return cached.(*model.CredentialDistribution), nil
	}

	dist, err := s.repo.CredentialDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute credential distribution: %w", err)
	}

	s.cache.Set(keyCredentialDistribution, dist, cache.DefaultExpiration)
	return dist, nil
}

var exportHeader = []string{
	"physician_name", "npi", "entity_type", "identifier", "state",
	"expiration_date", "status",
}

// Export renders the full credential roster in the requested format.
// Exports bypass the cache: they are rare and must reflect current data.
func (s *Service) Export(ctx context.Context, format string) ([]byte, string, error) {
	rows, err := s.repo.ExportRows(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load export rows: %w", err)
	}

	switch format {
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(exportHeader); err != nil {
			return nil, "", fmt.Errorf("failed to write export: %w", err)
		}
		for _, row := range rows {
			record := []string{
				row.PhysicianName,
				row.NPI,
				row.EntityType,
				row.Identifier,
				row.State,
				row.ExpirationDate.Format("2006-01-02"),
				row.Status,
			}
			if err := w.Write(record); err != nil {
				return nil, "", fmt.Errorf("failed to write export: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", fmt.Errorf("failed to write export: %w", err)
		}
		return buf.Bytes(), "text/csv", nil

	case "json":
		data, err := json.Marshal(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal export: %w", err)
		}
		return data, "application/json", nil

	default:
		return nil, "", apperrors.BadRequest(fmt.Sprintf("unsupported export format %q, must be one of %v", format, model.ExportFormats), nil)
	}
}
