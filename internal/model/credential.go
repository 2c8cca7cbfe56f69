package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EntityType identifies which kind of credential a renewal workflow or
// notification refers to.
type EntityType string

const (
	EntityTypeLicense       EntityType = "license"
	EntityTypeDEA           EntityType = "dea"
	EntityTypeCSR           EntityType = "csr"
	EntityTypeCertification EntityType = "certification"
)

var EntityTypes = []string{
	string(EntityTypeLicense),
	string(EntityTypeDEA),
	string(EntityTypeCSR),
	string(EntityTypeCertification),
}

// CredentialStatus is the stored lifecycle field on every credential row.
// The expiry classifier recomputes it from the expiration date, but an
// explicitly stored "expired" always wins.
type CredentialStatus string

const (
	CredentialStatusActive          CredentialStatus = "active"
	CredentialStatusRenewalRequired CredentialStatus = "renewal_required"
	CredentialStatusExpiringSoon    CredentialStatus = "expiring_soon"
	CredentialStatusExpired         CredentialStatus = "expired"
	CredentialStatusPending         CredentialStatus = "pending"
)

var CredentialStatuses = []string{
	string(CredentialStatusActive),
	string(CredentialStatusRenewalRequired),
	string(CredentialStatusExpiringSoon),
	string(CredentialStatusExpired),
	string(CredentialStatusPending),
}

// License is a state medical license.
type License struct {
	Base
	PhysicianID    uuid.UUID `db:"physician_id" json:"physician_id"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	State          string    `db:"state" json:"state"`
	IssueDate      time.Time `db:"issue_date" json:"issue_date"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	Status         string    `db:"status" json:"status"`
}

// DEARegistration is a federal DEA registration. MATEAttested records the
// federal MATE training attestation captured at renewal.
type DEARegistration struct {
	Base
	PhysicianID        uuid.UUID      `db:"physician_id" json:"physician_id"`
	RegistrationNumber string         `db:"registration_number" json:"registration_number"`
	State              string         `db:"state" json:"state"`
	Schedules          pq.StringArray `db:"schedules" json:"schedules"`
	MATEAttested       bool           `db:"mate_attested" json:"mate_attested"`
	IssueDate          time.Time      `db:"issue_date" json:"issue_date"`
	ExpirationDate     time.Time      `db:"expiration_date" json:"expiration_date"`
	Status             string         `db:"status" json:"status"`
}

// CSRLicense is a state-level controlled substance registration, distinct
// from the federal DEA registration.
type CSRLicense struct {
	Base
	PhysicianID    uuid.UUID `db:"physician_id" json:"physician_id"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	State          string    `db:"state" json:"state"`
	IssueDate      time.Time `db:"issue_date" json:"issue_date"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	Status         string    `db:"status" json:"status"`
}

// Certification is a board certification.
type Certification struct {
	Base
	PhysicianID       uuid.UUID `db:"physician_id" json:"physician_id"`
	BoardName         string    `db:"board_name" json:"board_name"`
	CertifyingBody    string    `db:"certifying_body" json:"certifying_body"`
	CertificationType string    `db:"certification_type" json:"certification_type"`
	CertificateNumber string    `db:"certificate_number" json:"certificate_number"`
	IssueDate         time.Time `db:"issue_date" json:"issue_date"`
	ExpirationDate    time.Time `db:"expiration_date" json:"expiration_date"`
	Status            string    `db:"status" json:"status"`
}

// ExpiringCredential is one row of the merged cross-kind expiring view used
// by the notification feed and the renewal scanner.
type ExpiringCredential struct {
	EntityType     EntityType `db:"entity_type" json:"entity_type"`
	EntityID       uuid.UUID  `db:"entity_id" json:"entity_id"`
	PhysicianID    uuid.UUID  `db:"physician_id" json:"physician_id"`
	PhysicianName  string     `db:"physician_name" json:"physician_name"`
	Identifier     string     `db:"identifier" json:"identifier"`
	State          string     `db:"state" json:"state"`
	ExpirationDate time.Time  `db:"expiration_date" json:"expiration_date"`
	Status         string     `db:"status" json:"status"`
}

type CreateLicenseRequest struct {
	LicenseNumber  string    `json:"license_number" binding:"required"`
	State          string    `json:"state" binding:"required,len=2"`
	IssueDate      time.Time `json:"issue_date" binding:"required"`
	ExpirationDate time.Time `json:"expiration_date" binding:"required"`
}

type CreateDEARequest struct {
	RegistrationNumber string    `json:"registration_number" binding:"required"`
	State              string    `json:"state" binding:"required,len=2"`
	Schedules          []string  `json:"schedules" binding:"required,min=1"`
	MATEAttested       bool      `json:"mate_attested"`
	IssueDate          time.Time `json:"issue_date" binding:"required"`
	ExpirationDate     time.Time `json:"expiration_date" binding:"required"`
}

type CreateCSRRequest struct {
	LicenseNumber  string    `json:"license_number" binding:"required"`
	State          string    `json:"state" binding:"required,len=2"`
	IssueDate      time.Time `json:"issue_date" binding:"required"`
	ExpirationDate time.Time `json:"expiration_date" binding:"required"`
}

type CreateCertificationRequest struct {
	BoardName         string    `json:"board_name" binding:"required"`
	CertifyingBody    string    `json:"certifying_body"`
	CertificationType string    `json:"certification_type"`
	CertificateNumber string    `json:"certificate_number"`
	IssueDate         time.Time `json:"issue_date" binding:"required"`
	ExpirationDate    time.Time `json:"expiration_date" binding:"required"`
}

// RenewCredentialRequest supersedes a credential's expiration date at
// renewal. Credentials are never hard-deleted. MATEAttested only applies to
// DEA registrations.
type RenewCredentialRequest struct {
	IssueDate      time.Time `json:"issue_date" binding:"required"`
	ExpirationDate time.Time `json:"expiration_date" binding:"required"`
	MATEAttested   *bool     `json:"mate_attested"`
}
