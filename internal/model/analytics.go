package model

import "time"

// ComplianceSummary buckets every tracked credential by its classified
// status.
type ComplianceSummary struct {
	TotalPhysicians      int     `json:"total_physicians"`
	TotalCredentials     int     `json:"total_credentials"`
	Active               int     `json:"active"`
	RenewalRequired      int     `json:"renewal_required"`
	ExpiringSoon         int     `json:"expiring_soon"`
	Expired              int     `json:"expired"`
	CompliancePercentage float64 `json:"compliance_percentage"`
}

// RenewalTrend is one month of workflow outcomes.
type RenewalTrend struct {
	Month    string `db:"month" json:"month"`
	Opened   int    `db:"opened" json:"opened"`
	Approved int    `db:"approved" json:"approved"`
	Rejected int    `db:"rejected" json:"rejected"`
	Expired  int    `db:"expired" json:"expired"`
}

// ExpirationForecastBucket counts credentials expiring in one future month.
type ExpirationForecastBucket struct {
	Month        string         `json:"month"`
	Start        time.Time      `json:"-"`
	Total        int            `json:"total"`
	ByEntityType map[string]int `json:"by_entity_type"`
}

// ProviderMetrics summarizes one physician's credential health.
type ProviderMetrics struct {
	PhysicianID      string  `json:"physician_id"`
	PhysicianName    string  `json:"physician_name"`
	Specialty        string  `json:"specialty,omitempty"`
	TotalCredentials int     `json:"total_credentials"`
	ExpiringSoon     int     `json:"expiring_soon"`
	Expired          int     `json:"expired"`
	OpenWorkflows    int     `json:"open_workflows"`
	ComplianceScore  float64 `json:"compliance_score"`
}

// CredentialDistribution counts credentials per kind and per state.
type CredentialDistribution struct {
	ByEntityType map[string]int `json:"by_entity_type"`
	ByState      map[string]int `json:"by_state"`
	ByStatus     map[string]int `json:"by_status"`
}

type AnalyticsExportRow struct {
	PhysicianName  string    `db:"physician_name" json:"physician_name"`
	NPI            string    `db:"npi" json:"npi"`
	EntityType     string    `db:"entity_type" json:"entity_type"`
	Identifier     string    `db:"identifier" json:"identifier"`
	State          string    `db:"state" json:"state"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	Status         string    `db:"status" json:"status"`
}

var ExportFormats = []string{"csv", "json"}
