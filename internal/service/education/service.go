package education

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

// Service manages education and work history entries, which have no
// expiration semantics of their own.
type Service struct {
	repo          repository.EducationRepository
	physicianRepo repository.PhysicianRepository
}

func NewService(repo repository.EducationRepository, physicianRepo repository.PhysicianRepository) *Service {
	return &Service{repo: repo, physicianRepo: physicianRepo}
}

func (s *Service) requirePhysician(ctx context.Context, physicianID uuid.UUID) error {
	if _, err := s.physicianRepo.Get(ctx, physicianID); err != nil {
		return apperrors.NotFound("physician", err)
	}
	return nil
}

func (s *Service) CreateEducation(ctx context.Context, physicianID uuid.UUID, req *model.CreateEducationRequest) (*model.Education, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, apperrors.BadRequest("end date must not precede start date", nil)
	}

	edu := &model.Education{
		Base:         model.Base{ID: uuid.New()},
		PhysicianID:  physicianID,
		Institution:  req.Institution,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
	if err := s.repo.CreateEducation(ctx, edu); err != nil {
		return nil, fmt.Errorf("failed to create education entry: %w", err)
	}
	return edu, nil
}

func (s *Service) ListEducation(ctx context.Context, physicianID uuid.UUID) ([]*model.Education, error) {
	entries, err := s.repo.ListEducation(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list education entries: %w", err)
	}
	return entries, nil
}

func (s *Service) UpdateEducation(ctx context.Context, physicianID, entryID uuid.UUID, req *model.UpdateEducationRequest) (*model.Education, error) {
	entries, err := s.repo.ListEducation(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list education entries: %w", err)
	}

	var entry *model.Education
	for _, e := range entries {
		if e.ID == entryID {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, apperrors.NotFound("education entry", nil)
	}

	if req.Institution != nil {
		entry.Institution = *req.Institution
	}
	if req.Degree != nil {
		entry.Degree = *req.Degree
	}
	if req.FieldOfStudy != nil {
		entry.FieldOfStudy = *req.FieldOfStudy
	}
	if req.StartDate != nil {
		entry.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		entry.EndDate = req.EndDate
	}
	if req.Verified != nil {
		entry.Verified = *req.Verified
	}
	if entry.EndDate != nil && entry.EndDate.Before(entry.StartDate) {
		return nil, apperrors.BadRequest("end date must not precede start date", nil)
	}

	if err := s.repo.UpdateEducation(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update education entry: %w", err)
	}
	return entry, nil
}

func (s *Service) CreateWorkHistory(ctx context.Context, physicianID uuid.UUID, req *model.CreateWorkHistoryRequest) (*model.WorkHistory, error) {
	if err := s.requirePhysician(ctx, physicianID); err != nil {
		return nil, err
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, apperrors.BadRequest("end date must not precede start date", nil)
	}

	wh := &model.WorkHistory{
		Base:        model.Base{ID: uuid.New()},
		PhysicianID: physicianID,
		Employer:    req.Employer,
		Position:    req.Position,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := s.repo.CreateWorkHistory(ctx, wh); err != nil {
		return nil, fmt.Errorf("failed to create work history entry: %w", err)
	}
	return wh, nil
}

func (s *Service) ListWorkHistory(ctx context.Context, physicianID uuid.UUID) ([]*model.WorkHistory, error) {
	entries, err := s.repo.ListWorkHistory(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work history entries: %w", err)
	}
	return entries, nil
}

func (s *Service) UpdateWorkHistory(ctx context.Context, physicianID, entryID uuid.UUID, req *model.UpdateWorkHistoryRequest) (*model.WorkHistory, error) {
	entries, err := s.repo.ListWorkHistory(ctx, physicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work history entries: %w", err)
	}

	var entry *model.WorkHistory
	for _, e := range entries {
		if e.ID == entryID {
			entry = e
			break
		}
	}
	if entry == nil {
		return nil, apperrors.NotFound("work history entry", nil)
	}

	if req.Employer != nil {
		entry.Employer = *req.Employer
	}
	if req.Position != nil {
		entry.Position = *req.Position
	}
	if req.StartDate != nil {
		entry.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		entry.EndDate = req.EndDate
	}
	if req.Verified != nil {
		entry.Verified = *req.Verified
	}
	if entry.EndDate != nil && entry.EndDate.Before(entry.StartDate) {
		return nil, apperrors.BadRequest("end date must not precede start date", nil)
	}

	if err := s.repo.UpdateWorkHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to update work history entry: %w", err)
	}
	return entry, nil
}
