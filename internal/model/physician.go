package model

import (
	"time"

	"github.com/lib/pq"
)

type PhysicianStatus string

const (
	PhysicianStatusActive     PhysicianStatus = "active"
	PhysicianStatusInactive   PhysicianStatus = "inactive"
	PhysicianStatusOnLeave    PhysicianStatus = "on_leave"
	PhysicianStatusTerminated PhysicianStatus = "terminated"
)

// PhysicianStatuses lists the values accepted for the status field.
var PhysicianStatuses = []string{
	string(PhysicianStatusActive),
	string(PhysicianStatusInactive),
	string(PhysicianStatusOnLeave),
	string(PhysicianStatusTerminated),
}

type Physician struct {
	Base
	NPI          string         `db:"npi" json:"npi"`
	FirstName    string         `db:"first_name" json:"first_name"`
	MiddleName   string         `db:"middle_name" json:"middle_name,omitempty"`
	LastName     string         `db:"last_name" json:"last_name"`
	Suffix       string         `db:"suffix" json:"suffix,omitempty"`
	DateOfBirth  time.Time      `db:"date_of_birth" json:"date_of_birth"`
	SSNLast4     string         `db:"ssn_last4" json:"ssn_last4,omitempty"`
	Email        string         `db:"email" json:"email"`
	PhoneNumbers pq.StringArray `db:"phone_numbers" json:"phone_numbers"`
	AddressLine1 string         `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2 string         `db:"address_line2" json:"address_line2,omitempty"`
	City         string         `db:"city" json:"city,omitempty"`
	State        string         `db:"state" json:"state,omitempty"`
	ZipCode      string         `db:"zip_code" json:"zip_code,omitempty"`
	Specialty    string         `db:"specialty" json:"specialty,omitempty"`
	Status       string         `db:"status" json:"status"`

	// EmergencyContact is stored as a JSON text column.
	EmergencyContactJSON string            `db:"emergency_contact" json:"-"`
	EmergencyContact     *EmergencyContact `db:"-" json:"emergency_contact,omitempty"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
}

// Age computes whole years from date of birth at the given reference time.
func (p *Physician) Age(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

type CreatePhysicianRequest struct {
	NPI          string            `json:"npi" binding:"required,len=10,numeric"`
	FirstName    string            `json:"first_name" binding:"required"`
	MiddleName   string            `json:"middle_name"`
	LastName     string            `json:"last_name" binding:"required"`
	Suffix       string            `json:"suffix"`
	DateOfBirth  time.Time         `json:"date_of_birth" binding:"required"`
	SSNLast4     string            `json:"ssn_last4" binding:"omitempty,len=4,numeric"`
	Email        string            `json:"email" binding:"required,email"`
	PhoneNumbers []string          `json:"phone_numbers"`
	AddressLine1 string            `json:"address_line1"`
	AddressLine2 string            `json:"address_line2"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	ZipCode      string            `json:"zip_code"`
	Specialty    string            `json:"specialty"`
	Status       string            `json:"status"`
	Emergency    *EmergencyContact `json:"emergency_contact"`
}

type UpdatePhysicianRequest struct {
	FirstName    *string           `json:"first_name"`
	MiddleName   *string           `json:"middle_name"`
	LastName     *string           `json:"last_name"`
	Suffix       *string           `json:"suffix"`
	Email        *string           `json:"email" binding:"omitempty,email"`
	PhoneNumbers []string          `json:"phone_numbers"`
	AddressLine1 *string           `json:"address_line1"`
	AddressLine2 *string           `json:"address_line2"`
	City         *string           `json:"city"`
	State        *string           `json:"state"`
	ZipCode      *string           `json:"zip_code"`
	Specialty    *string           `json:"specialty"`
	Status       *string           `json:"status"`
	Emergency    *EmergencyContact `json:"emergency_contact"`
}

type PhysicianFilters struct {
	SearchTerm string `form:"search"`
	Status     string `form:"status"`
	Specialty  string `form:"specialty"`
	State      string `form:"state"`
	Pagination
}
