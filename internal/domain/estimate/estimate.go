// Package estimate defines the estimate aggregate: an estimate document,
// its line items, and the status lifecycle governing mutations.
package estimate

import (
	"fmt"
	"time"

	"github.com/bblanco3/erp-backend/internal/domain"
)

// Status values for the estimate lifecycle.
const (
	StatusDraft    = "draft"
	StatusRevised  = "revised"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Estimate represents a priced proposal attached to a project.
// Monetary totals are derived from the items and must only be written
// through Recalculate.
type Estimate struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	Number          string    `json:"number"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Status          string    `json:"status"`
	Version         int       `json:"version"`
	RevisedFromID   string    `json:"revised_from_id,omitempty"`
	TotalCost       float64   `json:"total_cost"`
	TotalMarkup     float64   `json:"total_markup"`
	TotalPrice      float64   `json:"total_price"`
	ApprovedBy      string    `json:"approved_by,omitempty"`
	ApprovedAt      time.Time `json:"approved_at,omitzero"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Items           []Item    `json:"items,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Item is a single line of an estimate. TotalPrice is derived:
// quantity * unit price, marked up by MarkupPct (a whole-number percent).
type Item struct {
	ID          string  `json:"id"`
	EstimateID  string  `json:"estimate_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	MarkupPct   float64 `json:"markup_pct"`
	TotalPrice  float64 `json:"total_price"`
	Position    int     `json:"position"`
}

// Editable reports whether the estimate's content (fields and items) may
// still be modified.
func (e *Estimate) Editable() bool {
	return e.Status == StatusDraft || e.Status == StatusRevised
}

// CanSubmit reports whether the estimate may move to pending approval.
func (e *Estimate) CanSubmit() bool {
	return e.Status == StatusDraft || e.Status == StatusRevised
}

// CanDecide reports whether the estimate may be approved or rejected.
func (e *Estimate) CanDecide() bool {
	return e.Status == StatusPending
}

// CanDelete reports whether the estimate may be removed. Approved
// estimates are immutable records and never deletable.
func (e *Estimate) CanDelete() bool {
	return e.Status != StatusApproved
}

// transitionErr builds the sentinel-wrapped error for a refused operation.
func (e *Estimate) transitionErr(op string) error {
	return fmt.Errorf("%s estimate %s in status %q: %w", op, e.ID, e.Status, domain.ErrInvalidStateTransition)
}

// Submit moves a draft or revised estimate to pending approval.
func (e *Estimate) Submit() error {
	if !e.CanSubmit() {
		return e.transitionErr("submit")
	}
	e.Status = StatusPending
	return nil
}

// Approve marks a pending estimate approved, recording the approver and
// the decision time.
func (e *Estimate) Approve(userID string, at time.Time) error {
	if !e.CanDecide() {
		return e.transitionErr("approve")
	}
	e.Status = StatusApproved
	e.ApprovedBy = userID
	e.ApprovedAt = at
	return nil
}

// Reject marks a pending estimate rejected with the given reason.
func (e *Estimate) Reject(reason string) error {
	if !e.CanDecide() {
		return e.transitionErr("reject")
	}
	e.Status = StatusRejected
	e.RejectionReason = reason
	return nil
}

// Revise returns a new working copy of the estimate with the version
// incremented, status reset to revised, and all items carried over.
// The receiver is left untouched. Approval metadata does not carry over.
func (e *Estimate) Revise() *Estimate {
	cp := *e
	cp.ID = ""
	cp.Status = StatusRevised
	cp.Version = e.Version + 1
	cp.RevisedFromID = e.ID
	cp.ApprovedBy = ""
	cp.ApprovedAt = time.Time{}
	cp.RejectionReason = ""
	cp.Items = make([]Item, len(e.Items))
	for i, it := range e.Items {
		it.ID = ""
		it.EstimateID = ""
		cp.Items[i] = it
	}
	return &cp
}

// NumberFor returns the estimate number for the n-th estimate of a
// project, e.g. "PRJ-001-EST-003".
func NumberFor(projectNumber string, n int) string {
	return fmt.Sprintf("%s-EST-%03d", projectNumber, n)
}
