package document

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/audit"
	"github.com/caremesh/credentialing-api/internal/storage"
)

// Service handles the two-phase document upload: presign, client PUTs the
// bytes directly to the object store, then the metadata is registered here
// and versioned.
type Service struct {
	repo          repository.DocumentRepository
	physicianRepo repository.PhysicianRepository
	store         storage.ObjectStore
	auditor       *audit.Service
}

func NewService(repo repository.DocumentRepository, physicianRepo repository.PhysicianRepository, store storage.ObjectStore, auditor *audit.Service) *Service {
	return &Service{repo: repo, physicianRepo: physicianRepo, store: store, auditor: auditor}
}

// UploadURL is phase one: it allocates a storage key and presigns a PUT URL.
// No database row is written until the client registers the metadata.
func (s *Service) UploadURL(ctx context.Context, physicianID uuid.UUID, req *model.UploadURLRequest) (*model.UploadURLResponse, error) {
	if _, err := s.physicianRepo.Get(ctx, physicianID); err != nil {
		return nil, apperrors.NotFound("physician", err)
	}

	key := storage.ObjectKey(physicianID, req.DocumentType, req.FileName)
	url, expiry, err := s.store.PresignUpload(ctx, key, req.MimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &model.UploadURLResponse{
		UploadURL:  url,
		StorageKey: key,
		ExpiresIn:  int(expiry.Seconds()),
	}, nil
}

// Register is phase two: the uploaded file becomes the current version of
// its document type and any previous current version is archived.
func (s *Service) Register(ctx context.Context, physicianID uuid.UUID, req *model.RegisterDocumentRequest) (*model.Document, error) {
	if _, err := s.physicianRepo.Get(ctx, physicianID); err != nil {
		return nil, apperrors.NotFound("physician", err)
	}

	doc := &model.Document{
		Base:         model.Base{ID: uuid.New()},
		PhysicianID:  physicianID,
		DocumentType: model.DocumentType(req.DocumentType),
		FileName:     req.FileName,
		StorageKey:   req.StorageKey,
		FileSize:     req.FileSize,
		MimeType:     req.MimeType,
		UploadedBy:   audit.UserIDFromContext(ctx),
	}
	if err := s.repo.RegisterVersion(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityDocument, doc.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"document_type": req.DocumentType,
			"file_name":     req.FileName,
			"version":       doc.Version,
		},
	})
	return doc, nil
}

func (s *Service) List(ctx context.Context, physicianID uuid.UUID, filters *model.DocumentFilters) ([]*model.Document, error) {
	if _, err := s.physicianRepo.Get(ctx, physicianID); err != nil {
		return nil, apperrors.NotFound("physician", err)
	}
	docs, err := s.repo.List(ctx, physicianID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// DownloadURL presigns a time-limited GET URL for one document version.
func (s *Service) DownloadURL(ctx context.Context, id uuid.UUID) (*model.DownloadURLResponse, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("document", err)
	}

	url, expiry, err := s.store.PresignDownload(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to presign download: %w", err)
	}

	return &model.DownloadURLResponse{
		DownloadURL: url,
		FileName:    doc.FileName,
		ExpiresIn:   int(expiry.Seconds()),
	}, nil
}
