package model

import (
	"time"

	"github.com/google/uuid"
)

type Education struct {
	Base
	PhysicianID  uuid.UUID  `db:"physician_id" json:"physician_id"`
	Institution  string     `db:"institution" json:"institution"`
	Degree       string     `db:"degree" json:"degree"`
	FieldOfStudy string     `db:"field_of_study" json:"field_of_study,omitempty"`
	StartDate    time.Time  `db:"start_date" json:"start_date"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
	Verified     bool       `db:"verified" json:"verified"`
}

type WorkHistory struct {
	Base
	PhysicianID uuid.UUID  `db:"physician_id" json:"physician_id"`
	Employer    string     `db:"employer" json:"employer"`
	Position    string     `db:"position" json:"position"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	Verified    bool       `db:"verified" json:"verified"`
}

type CreateEducationRequest struct {
	Institution  string     `json:"institution" binding:"required"`
	Degree       string     `json:"degree" binding:"required"`
	FieldOfStudy string     `json:"field_of_study"`
	StartDate    time.Time  `json:"start_date" binding:"required"`
	EndDate      *time.Time `json:"end_date"`
}

type CreateWorkHistoryRequest struct {
	Employer  string     `json:"employer" binding:"required"`
	Position  string     `json:"position" binding:"required"`
	StartDate time.Time  `json:"start_date" binding:"required"`
	EndDate   *time.Time `json:"end_date"`
}

type UpdateEducationRequest struct {
	Institution  *string    `json:"institution"`
	Degree       *string    `json:"degree"`
	FieldOfStudy *string    `json:"field_of_study"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	Verified     *bool      `json:"verified"`
}

type UpdateWorkHistoryRequest struct {
	Employer  *string    `json:"employer"`
	Position  *string    `json:"position"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Verified  *bool      `json:"verified"`
}
