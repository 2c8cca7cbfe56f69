package model

import (
	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypeMedicalLicense       DocumentType = "medical_license"
	DocumentTypeDEACertificate       DocumentType = "dea_certificate"
	DocumentTypeCSRCertificate       DocumentType = "csr_certificate"
	DocumentTypeBoardCertification   DocumentType = "board_certification"
	DocumentTypeDiploma              DocumentType = "diploma"
	DocumentTypeCV                   DocumentType = "cv"
	DocumentTypeMalpracticeInsurance DocumentType = "malpractice_insurance"
	DocumentTypeGovernmentID         DocumentType = "government_id"
	DocumentTypeOther                DocumentType = "other"
)

var DocumentTypes = []string{
	string(DocumentTypeMedicalLicense),
	string(DocumentTypeDEACertificate),
	string(DocumentTypeCSRCertificate),
	string(DocumentTypeBoardCertification),
	string(DocumentTypeDiploma),
	string(DocumentTypeCV),
	string(DocumentTypeMalpracticeInsurance),
	string(DocumentTypeGovernmentID),
	string(DocumentTypeOther),
}

// Document is one version of a file for a physician. Exactly one row per
// (physician_id, document_type) has IsCurrent set; older versions are
// archived, never physically removed.
type Document struct {
	Base
	PhysicianID  uuid.UUID    `db:"physician_id" json:"physician_id"`
	DocumentType DocumentType `db:"document_type" json:"document_type"`
	FileName     string       `db:"file_name" json:"file_name"`
	StorageKey   string       `db:"storage_key" json:"storage_key"`
	FileSize     int64        `db:"file_size" json:"file_size"`
	MimeType     string       `db:"mime_type" json:"mime_type"`
	Version      int          `db:"version" json:"version"`
	IsCurrent    bool         `db:"is_current" json:"is_current"`
	UploadedBy   uuid.UUID    `db:"uploaded_by" json:"uploaded_by"`
}

// UploadURLRequest is phase one of the two-phase upload: the client asks for
// a presigned PUT URL, uploads directly, then registers metadata.
type UploadURLRequest struct {
	DocumentType string `json:"document_type" binding:"required"`
	FileName     string `json:"file_name" binding:"required"`
	MimeType     string `json:"mime_type" binding:"required"`
}

type UploadURLResponse struct {
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
	ExpiresIn  int    `json:"expires_in_seconds"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
	FileName    string `json:"file_name"`
	ExpiresIn   int    `json:"expires_in_seconds"`
}

// RegisterDocumentRequest is phase two: file metadata registered against the
// physician after the direct PUT.
type RegisterDocumentRequest struct {
	DocumentType string `json:"document_type" binding:"required"`
	FileName     string `json:"file_name" binding:"required"`
	StorageKey   string `json:"storage_key" binding:"required"`
	FileSize     int64  `json:"file_size" binding:"required,min=1"`
	MimeType     string `json:"mime_type" binding:"required"`
}

type DocumentFilters struct {
	DocumentType string `form:"document_type"`
	// IncludeArchived includes superseded versions in the listing.
	IncludeArchived bool `form:"include_archived"`
}
