// Package project defines the project domain model.
package project

import (
	"fmt"
	"time"
)

// Status values for a project lifecycle.
const (
	StatusPlanned   = "planned"
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusCompleted = "completed"
)

// Project represents a client engagement owned by a tenant. Number is a
// short human-facing code assigned at creation and never reused; it also
// prefixes the numbers of the project's estimates.
type Project struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	Name        string    `json:"name"`
	ClientName  string    `json:"client_name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date,omitzero"`
	EndDate     time.Time `json:"end_date,omitzero"`
	Deleted     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NumberFor returns the project number for the n-th project of a
// tenant, e.g. "PRJ-014".
func NumberFor(n int) string {
	return fmt.Sprintf("PRJ-%03d", n)
}

// ValidStatus reports whether s is a known project status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusActive, StatusOnHold, StatusCompleted:
		return true
	}
	return false
}

// Stats is the aggregate read model for a single project.
type Stats struct {
	ProjectID      string  `json:"project_id"`
	EstimateCount  int     `json:"estimate_count"`
	ApprovedCount  int     `json:"approved_count"`
	PendingCount   int     `json:"pending_count"`
	TotalEstimated float64 `json:"total_estimated"`
	TotalApproved  float64 `json:"total_approved"`
}
