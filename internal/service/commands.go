package service

import (
	"fmt"
	"time"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/project"
)

// Command names. Exactly one handler serves each; Commands() feeds the
// startup completeness check.
const (
	CmdProjectCreate = "project.create"
	CmdProjectUpdate = "project.update"
	CmdProjectDelete = "project.delete"

	CmdEstimateCreate     = "estimate.create"
	CmdEstimateUpdate     = "estimate.update"
	CmdEstimateDelete     = "estimate.delete"
	CmdEstimateSubmit     = "estimate.submit"
	CmdEstimateApprove    = "estimate.approve"
	CmdEstimateReject     = "estimate.reject"
	CmdEstimateRevise     = "estimate.revise"
	CmdEstimateAddItem    = "estimate.add_item"
	CmdEstimateUpdateItem = "estimate.update_item"
	CmdEstimateDeleteItem = "estimate.delete_item"

	CmdEmployeeCreate = "employee.create"
	CmdEmployeeUpdate = "employee.update"
	CmdEmployeeDelete = "employee.delete"
)

// Commands lists every command name the service registers.
func Commands() []string {
	return []string{
		CmdProjectCreate, CmdProjectUpdate, CmdProjectDelete,
		CmdEstimateCreate, CmdEstimateUpdate, CmdEstimateDelete,
		CmdEstimateSubmit, CmdEstimateApprove, CmdEstimateReject, CmdEstimateRevise,
		CmdEstimateAddItem, CmdEstimateUpdateItem, CmdEstimateDeleteItem,
		CmdEmployeeCreate, CmdEmployeeUpdate, CmdEmployeeDelete,
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrInvalidArgument)...)
}

// ---------------------------------------------------------------------------
// Project commands
// ---------------------------------------------------------------------------

// CreateProject creates a project.
type CreateProject struct {
	ActorID     string
	Name        string
	ClientName  string
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
}

func (CreateProject) CommandName() string { return CmdProjectCreate }

func (c CreateProject) Validate() error {
	if c.Name == "" {
		return invalidf("project name is required")
	}
	if c.Status != "" && !project.ValidStatus(c.Status) {
		return invalidf("unknown project status %q", c.Status)
	}
	return nil
}

// UpdateProject updates a project's mutable fields. Empty strings leave
// the current value in place; status must be valid when set.
type UpdateProject struct {
	ActorID     string
	ProjectID   string
	Name        string
	ClientName  string
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
}

func (UpdateProject) CommandName() string { return CmdProjectUpdate }

func (c UpdateProject) Validate() error {
	if c.ProjectID == "" {
		return invalidf("project id is required")
	}
	if c.Status != "" && !project.ValidStatus(c.Status) {
		return invalidf("unknown project status %q", c.Status)
	}
	return nil
}

// DeleteProject soft-deletes a project.
type DeleteProject struct {
	ActorID   string
	ProjectID string
}

func (DeleteProject) CommandName() string { return CmdProjectDelete }

func (c DeleteProject) Validate() error {
	if c.ProjectID == "" {
		return invalidf("project id is required")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Estimate commands
// ---------------------------------------------------------------------------

// ItemInput is the caller-supplied shape of an estimate line item.
type ItemInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	MarkupPct   float64
	Position    int
}

func (in ItemInput) validate() error {
	if in.Description == "" {
		return invalidf("item description is required")
	}
	if in.Quantity < 0 {
		return invalidf("item quantity must not be negative")
	}
	if in.UnitPrice < 0 {
		return invalidf("item unit price must not be negative")
	}
	return nil
}

// CreateEstimate creates a draft estimate, optionally with initial items.
type CreateEstimate struct {
	ActorID     string
	ProjectID   string
	Title       string
	Description string
	Items       []ItemInput
}

func (CreateEstimate) CommandName() string { return CmdEstimateCreate }

func (c CreateEstimate) Validate() error {
	if c.ProjectID == "" {
		return invalidf("project id is required")
	}
	if c.Title == "" {
		return invalidf("estimate title is required")
	}
	for _, it := range c.Items {
		if err := it.validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEstimate updates the header of an editable estimate.
type UpdateEstimate struct {
	ActorID     string
	EstimateID  string
	Title       string
	Description string
}

func (UpdateEstimate) CommandName() string { return CmdEstimateUpdate }

func (c UpdateEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	return nil
}

// DeleteEstimate removes a non-approved estimate and its items.
type DeleteEstimate struct {
	ActorID    string
	EstimateID string
}

func (DeleteEstimate) CommandName() string { return CmdEstimateDelete }

func (c DeleteEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	return nil
}

// SubmitEstimate moves a draft or revised estimate to pending approval.
type SubmitEstimate struct {
	ActorID    string
	EstimateID string
}

func (SubmitEstimate) CommandName() string { return CmdEstimateSubmit }

func (c SubmitEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	return nil
}

// ApproveEstimate approves a pending estimate.
type ApproveEstimate struct {
	ActorID    string
	EstimateID string
}

func (ApproveEstimate) CommandName() string { return CmdEstimateApprove }

func (c ApproveEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	if c.ActorID == "" {
		return invalidf("approver id is required")
	}
	return nil
}

// RejectEstimate rejects a pending estimate with a reason.
type RejectEstimate struct {
	ActorID    string
	EstimateID string
	Reason     string
}

func (RejectEstimate) CommandName() string { return CmdEstimateReject }

func (c RejectEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	if c.Reason == "" {
		return invalidf("rejection reason is required")
	}
	return nil
}

// ReviseEstimate copies an estimate into a new working version.
type ReviseEstimate struct {
	ActorID    string
	EstimateID string
}

func (ReviseEstimate) CommandName() string { return CmdEstimateRevise }

func (c ReviseEstimate) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	return nil
}

// AddEstimateItem adds a line item to an editable estimate.
type AddEstimateItem struct {
	ActorID    string
	EstimateID string
	Item       ItemInput
}

func (AddEstimateItem) CommandName() string { return CmdEstimateAddItem }

func (c AddEstimateItem) Validate() error {
	if c.EstimateID == "" {
		return invalidf("estimate id is required")
	}
	return c.Item.validate()
}

// UpdateEstimateItem updates a line item of an editable estimate.
type UpdateEstimateItem struct {
	ActorID    string
	EstimateID string
	ItemID     string
	Item       ItemInput
}

func (UpdateEstimateItem) CommandName() string { return CmdEstimateUpdateItem }

func (c UpdateEstimateItem) Validate() error {
	if c.EstimateID == "" || c.ItemID == "" {
		return invalidf("estimate id and item id are required")
	}
	return c.Item.validate()
}

// DeleteEstimateItem removes a line item from an editable estimate.
type DeleteEstimateItem struct {
	ActorID    string
	EstimateID string
	ItemID     string
}

func (DeleteEstimateItem) CommandName() string { return CmdEstimateDeleteItem }

func (c DeleteEstimateItem) Validate() error {
	if c.EstimateID == "" || c.ItemID == "" {
		return invalidf("estimate id and item id are required")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Employee commands
// ---------------------------------------------------------------------------

// CreateEmployee creates an employee.
type CreateEmployee struct {
	ActorID    string
	FirstName  string
	LastName   string
	Email      string
	Role       string
	HourlyRate float64
}

func (CreateEmployee) CommandName() string { return CmdEmployeeCreate }

func (c CreateEmployee) Validate() error {
	if c.FirstName == "" && c.LastName == "" {
		return invalidf("employee name is required")
	}
	if c.Email == "" {
		return invalidf("employee email is required")
	}
	if c.HourlyRate < 0 {
		return invalidf("hourly rate must not be negative")
	}
	return nil
}

// UpdateEmployee updates an employee's mutable fields.
type UpdateEmployee struct {
	ActorID    string
	EmployeeID string
	FirstName  string
	LastName   string
	Email      string
	Role       string
	HourlyRate float64
}

func (UpdateEmployee) CommandName() string { return CmdEmployeeUpdate }

func (c UpdateEmployee) Validate() error {
	if c.EmployeeID == "" {
		return invalidf("employee id is required")
	}
	if c.HourlyRate < 0 {
		return invalidf("hourly rate must not be negative")
	}
	return nil
}

// DeleteEmployee soft-deletes an employee.
type DeleteEmployee struct {
	ActorID    string
	EmployeeID string
}

func (DeleteEmployee) CommandName() string { return CmdEmployeeDelete }

func (c DeleteEmployee) Validate() error {
	if c.EmployeeID == "" {
		return invalidf("employee id is required")
	}
	return nil
}
