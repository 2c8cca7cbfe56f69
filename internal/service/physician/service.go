package physician

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/audit"
)

type PhysicianService interface {
	CreatePhysician(ctx context.Context, physician *model.Physician) error
	GetPhysician(ctx context.Context, id uuid.UUID) (*model.Physician, error)
	UpdatePhysician(ctx context.Context, physician *model.Physician) error
	DeletePhysician(ctx context.Context, id uuid.UUID) error
	ListPhysicians(ctx context.Context, filters *model.PhysicianFilters) ([]*model.Physician, error)
}

type Service struct {
	repo    repository.PhysicianRepository
	auditor *audit.Service
}

func NewService(repo repository.PhysicianRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, auditor: auditor}
}

func (s *Service) CreatePhysician(ctx context.Context, physician *model.Physician) error {
	if err := s.validatePhysician(physician); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	physician.ID = uuid.New()
	physician.CreatedAt = time.Now()
	physician.UpdatedAt = time.Now()
	if physician.Status == "" {
		physician.Status = string(model.PhysicianStatusActive)
	}

	if err := s.marshalJSONFields(physician); err != nil {
		return fmt.Errorf("failed to marshal JSON fields: %w", err)
	}

	if err := s.repo.Create(ctx, physician); err != nil {
		return fmt.Errorf("failed to create physician: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityPhysician, physician.ID, &audit.LogOptions{
		Changes: physician,
	})

	return nil
}

func (s *Service) GetPhysician(ctx context.Context, id uuid.UUID) (*model.Physician, error) {
	physician, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("physician", err)
	}

	if err := s.unmarshalJSONFields(physician); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON fields: %w", err)
	}
	return physician, nil
}

func (s *Service) UpdatePhysician(ctx context.Context, physician *model.Physician) error {
	if err := s.validatePhysician(physician); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	physician.UpdatedAt = time.Now()

	if err := s.marshalJSONFields(physician); err != nil {
		return fmt.Errorf("failed to marshal JSON fields: %w", err)
	}

	if err := s.repo.Update(ctx, physician); err != nil {
		return fmt.Errorf("failed to update physician: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionUpdate, model.AuditEntityPhysician, physician.ID, &audit.LogOptions{
		Changes: physician,
	})

	return nil
}

func (s *Service) DeletePhysician(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return apperrors.NotFound("physician", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete physician: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionDelete, model.AuditEntityPhysician, id, nil)
	return nil
}

func (s *Service) ListPhysicians(ctx context.Context, filters *model.PhysicianFilters) ([]*model.Physician, error) {
	physicians, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list physicians: %w", err)
	}

	for _, physician := range physicians {
		if err := s.unmarshalJSONFields(physician); err != nil {
			return nil, fmt.Errorf("failed to unmarshal physician %s: %w", physician.ID, err)
		}
	}
	return physicians, nil
}

func (s *Service) validatePhysician(physician *model.Physician) error {
	if physician.NPI == "" {
		return fmt.Errorf("NPI is required")
	}
	if len(physician.NPI) != 10 {
		return fmt.Errorf("NPI must be 10 digits")
	}
	if physician.FirstName == "" {
		return fmt.Errorf("first name is required")
	}
	if physician.LastName == "" {
		return fmt.Errorf("last name is required")
	}
	if physician.Email == "" {
		return fmt.Errorf("email is required")
	}
	if physician.DateOfBirth.IsZero() {
		return fmt.Errorf("date of birth is required")
	}
	return nil
}

func (s *Service) marshalJSONFields(physician *model.Physician) error {
	if physician.EmergencyContact != nil {
		data, err := json.Marshal(physician.EmergencyContact)
		if err != nil {
			return err
		}
		physician.EmergencyContactJSON = string(data)
	}
	return nil
}

func (s *Service) unmarshalJSONFields(physician *model.Physician) error {
	if physician.EmergencyContactJSON != "" {
		var contact model.EmergencyContact
		if err := json.Unmarshal([]byte(physician.EmergencyContactJSON), &contact); err != nil {
			return err
		}
		physician.EmergencyContact = &contact
	}
	return nil
}
