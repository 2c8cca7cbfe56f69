package credential

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/audit"
)

// Service manages the four credential kinds. Credentials are never
// hard-deleted; a renewal supersedes the old dates in place and the audit
// log keeps the prior values.
type Service struct {
	repo          repository.CredentialRepository
	physicianRepo repository.PhysicianRepository
	auditor       *audit.Service
}

func NewService(repo repository.CredentialRepository, physicianRepo repository.PhysicianRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, physicianRepo: physicianRepo, auditor: auditor}
}

func (s *Service) requirePhysician(ctx context.Context, physicianID uuid.UUID) error {
	if _, err := s.physicianRepo.Get(ctx, physicianID); err != nil {
		return apperrors.NotFound("physician", err)
	}
	return nil
}

func validateDates(issue, expiration time.Time) error {
	if !expiration.After(issue) {
		return apperrors.BadRequest("expiration date must be after issue date", nil)
	}
	return nil
}

func (s *Service) CreateLicense(ctx context.Context, physicianID uuid.UUID, req *model.CreateLicenseRequest) (*model.License, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ExpirationDate); err != nil {
		return nil, err
	}

	license := &model.License{
		Base:           model.Base{ID: uuid.New()},
		PhysicianID:    physicianID,
		LicenseNumber:  req.LicenseNumber,
		State:          req.State,
		IssueDate:      req.IssueDate,
		ExpirationDate: req.ExpirationDate,
		Status:         string(expiry.Classify(req.ExpirationDate, time.Now())),
	}
	if err := s.repo.CreateLicense(ctx, license); err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityLicense, license.ID, &audit.LogOptions{Changes: license})
	return license, nil
}

func (s *Service) ListLicenses(ctx context.Context, physicianID uuid.UUID) ([]*model.License, error) {
	licenses, err := s.repo.ListLicenses(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	now := time.Now()
	for _, l := range licenses {
		l.Status = string(expiry.ClassifyWithStatus(model.CredentialStatus(l.Status), l.ExpirationDate, now))
	}
	return licenses, nil
}

func (s *Service) CreateDEA(ctx context.Context, physicianID uuid.UUID, req *model.CreateDEARequest) (*model.DEARegistration, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ExpirationDate); err != nil {
		return nil, err
	}

	dea := &model.DEARegistration{
		Base:               model.Base{ID: uuid.New()},
		PhysicianID:        physicianID,
		RegistrationNumber: req.RegistrationNumber,
		State:              req.State,
		Schedules:          pq.StringArray(req.Schedules),
		MATEAttested:       req.MATEAttested,
		IssueDate:          req.IssueDate,
		ExpirationDate:     req.ExpirationDate,
		Status:             string(expiry.Classify(req.ExpirationDate, time.Now())),
	}
	if err := s.repo.CreateDEA(ctx, dea); err != nil {
		return nil, fmt.Errorf("failed to create DEA registration: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityDEA, dea.ID, &audit.LogOptions{Changes: dea})
	return dea, nil
}

func (s *Service) ListDEAs(ctx context.Context, physicianID uuid.UUID) ([]*model.DEARegistration, error) {
	regs, err := s.repo.ListDEAs(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list DEA registrations: %w", err)
	}
	now := time.Now()
	for _, d := range regs {
		d.Status = string(expiry.ClassifyWithStatus(model.CredentialStatus(d.Status), d.ExpirationDate, now))
	}
	return regs, nil
}

func (s *Service) CreateCSR(ctx context.Context, physicianID uuid.UUID, req *model.CreateCSRRequest) (*model.CSRLicense, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ExpirationDate); err != nil {
		return nil, err
	}

	csr := &model.CSRLicense{
		Base:           model.Base{ID: uuid.New()},
		PhysicianID:    physicianID,
		LicenseNumber:  req.LicenseNumber,
		State:          req.State,
		IssueDate:      req.IssueDate,
		ExpirationDate: req.ExpirationDate,
		Status:         string(expiry.Classify(req.ExpirationDate, time.Now())),
	}
	if err := s.repo.CreateCSR(ctx, csr); err != nil {
		return nil, fmt.Errorf("failed to create CSR license: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityCSR, csr.ID, &audit.LogOptions{Changes: csr})
	return csr, nil
}

func (s *Service) ListCSRs(ctx context.Context, physicianID uuid.UUID) ([]*model.CSRLicense, error) {
	csrs, err := s.repo.ListCSRs(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list CSR licenses: %w", err)
	}
	now := time.Now()
	for _, c := range csrs {
		c.Status = string(expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now))
	}
	return csrs, nil
}

func (s *Service) CreateCertification(ctx context.Context, physicianID uuid.UUID, req *model.CreateCertificationRequest) (*model.Certification, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ExpirationDate); err != nil {
		return nil, err
	}

	cert := &model.Certification{
		Base:              model.Base{ID: uuid.New()},
		PhysicianID:       physicianID,
		BoardName:         req.BoardName,
		CertifyingBody:    req.CertifyingBody,
		CertificationType: req.CertificationType,
		CertificateNumber: req.CertificateNumber,
		IssueDate:         req.IssueDate,
		ExpirationDate:    req.ExpirationDate,
		Status:            string(expiry.Classify(req.ExpirationDate, time.Now())),
	}
	if err := s.repo.CreateCertification(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to create certification: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityCertification, cert.ID, &audit.LogOptions{Changes: cert})
	return cert, nil
}

func (s *Service) ListCertifications(ctx context.Context, physicianID uuid.UUID) ([]*model.Certification, error) {
	certs, err := s.repo.ListCertifications(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	now := time.Now()
	for _, c := range certs {
		c.Status = string(expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now))
	}
	return certs, nil
}

// Renew supersedes the credential's dates. The prior values survive in the
// audit log; the row itself is never deleted.
func (s *Service) Renew(ctx context.Context, entityType model.EntityType, id uuid.UUID, req *model.RenewCredentialRequest) error {
	if err := validateDates(req.IssueDate, req.ExpirationDate); err != nil {
		return err
	}
	status := string(expiry.Classify(req.ExpirationDate, time.Now()))

	switch entityType {
	case model.EntityTypeLicense:
		license, err := s.repo.GetLicense(ctx, id)
		if err != nil {
			return apperrors.NotFound("license", err)
		}
		prior := *license
		license.IssueDate = req.IssueDate
		license.ExpirationDate = req.ExpirationDate
		license.Status = status
		if err := s.repo.UpdateLicense(ctx, license); err != nil {
			return fmt.Errorf("failed to renew license: %w", err)
		}
		s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionRenew, model.AuditEntityLicense, id, &audit.LogOptions{Changes: prior})

	case model.EntityTypeDEA:
		dea, err := s.repo.GetDEA(ctx, id)
		if err != nil {
			return apperrors.NotFound("DEA registration", err)
		}
		prior := *dea
		dea.IssueDate = req.IssueDate
		dea.ExpirationDate = req.ExpirationDate
		dea.Status = status
		if req.MATEAttested != nil {
			dea.MATEAttested = *req.MATEAttested
		}
		if err := s.repo.UpdateDEA(ctx, dea); err != nil {
			return fmt.Errorf("failed to renew DEA registration: %w", err)
		}
		s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionRenew, model.AuditEntityDEA, id, &audit.LogOptions{Changes: prior})

	case model.EntityTypeCSR:
		csr, err := s.repo.GetCSR(ctx, id)
		if err != nil {
			return apperrors.NotFound("CSR license", err)
		}
		prior := *csr
		csr.IssueDate = req.IssueDate
		csr.ExpirationDate = req.ExpirationDate
		csr.Status = status
		if err := s.repo.UpdateCSR(ctx, csr); err != nil {
			return fmt.Errorf("failed to renew CSR license: %w", err)
		}
		s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionRenew, model.AuditEntityCSR, id, &audit.LogOptions{Changes: prior})

	case model.EntityTypeCertification:
		cert, err := s.repo.GetCertification(ctx, id)
		if err != nil {
			return apperrors.NotFound("certification", err)
		}
		prior := *cert
		cert.IssueDate = req.IssueDate
		cert.ExpirationDate = req.ExpirationDate
		cert.Status = status
		if err := s.repo.UpdateCertification(ctx, cert); err != nil {
			return fmt.Errorf("failed to renew certification: %w", err)
		}
		s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionRenew, model.AuditEntityCertification, id, &audit.LogOptions{Changes: prior})

	default:
		return apperrors.BadRequest(fmt.Sprintf("unknown entity type: %s", entityType), nil)
	}
	return nil
}

// ListPhysicianCredentials merges all four credential kinds for one
// physician into the cross-kind view.
func (s *Service) ListPhysicianCredentials(ctx context.Context, physicianID uuid.UUID) ([]*model.ExpiringCredential, error) {
	physician, err := s.physicianRepo.Get(ctx, physicianID)
	if err != nil {
		return nil, apperrors.NotFound("physician", err)
	}
	name := physician.FirstName + " " + physician.LastName
	now := time.Now()

	var merged []*model.ExpiringCredential

	licenses, err := s.repo.ListLicenses(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	for _, l := range licenses {
		merged = append(merged, &model.ExpiringCredential{
			EntityType:     model.EntityTypeLicense,
			EntityID:       l.ID,
			PhysicianID:    physicianID,
			PhysicianName:  name,
			Identifier:     l.LicenseNumber,
			State:          l.State,
			ExpirationDate: l.ExpirationDate,
			Status:         string(expiry.ClassifyWithStatus(model.CredentialStatus(l.Status), l.ExpirationDate, now)),
		})
	}

	deas, err := s.repo.ListDEAs(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list DEA registrations: %w", err)
	}
	for _, d := range deas {
		merged = append(merged, &model.ExpiringCredential{
			EntityType:     model.EntityTypeDEA,
			EntityID:       d.ID,
			PhysicianID:    physicianID,
			PhysicianName:  name,
			Identifier:     d.RegistrationNumber,
			State:          d.State,
			ExpirationDate: d.ExpirationDate,
			Status:         string(expiry.ClassifyWithStatus(model.CredentialStatus(d.Status), d.ExpirationDate, now)),
		})
	}

	csrs, err := s.repo.ListCSRs(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list CSR licenses: %w", err)
	}
	for _, c := range csrs {
		merged = append(merged, &model.ExpiringCredential{
			EntityType:     model.EntityTypeCSR,
			EntityID:       c.ID,
			PhysicianID:    physicianID,
			PhysicianName:  name,
			Identifier:     c.LicenseNumber,
			State:          c.State,
			ExpirationDate: c.ExpirationDate,
			Status:         string(expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now)),
		})
	}

	certs, err := s.repo.ListCertifications(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certifications: %w", err)
	}
	for _, c := range certs {
		merged = append(merged, &model.ExpiringCredential{
			EntityType:     model.EntityTypeCertification,
			EntityID:       c.ID,
			PhysicianID:    physicianID,
			PhysicianName:  name,
			Identifier:     c.CertificateNumber,
			ExpirationDate: c.ExpirationDate,
			Status:         string(expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now)),
		})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ExpirationDate.Before(merged[j].ExpirationDate)
	})
	return merged, nil
}

// ListExpiring returns the merged view of credentials expiring within the
// window, statuses recomputed through the classifier.
func (s *Service) ListExpiring(ctx context.Context, windowDays int) ([]*model.ExpiringCredential, error) {
	now := time.Now()
	creds, err := s.repo.ListExpiring(ctx, now.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}
	for _, c := range creds {
		c.Status = string(expiry.ClassifyWithStatus(model.CredentialStatus(c.Status), c.ExpirationDate, now))
	}
	return creds, nil
}
