package service

// Query names served by the read side.
const (
	QryProjectList  = "project.list"
	QryProjectGet   = "project.get"
	QryProjectStats = "project.stats"

	QryEstimateList = "estimate.list"
	QryEstimateGet  = "estimate.get"
	QryEstimateMarkupPlan = "estimate.markup_plan"

	QryEmployeeList = "employee.list"
	QryEmployeeGet  = "employee.get"

	QryLedgerList = "ledger.list"
)

// Queries lists every query name the service registers.
func Queries() []string {
	return []string{
		QryProjectList, QryProjectGet, QryProjectStats,
		QryEstimateList, QryEstimateGet, QryEstimateMarkupPlan,
		QryEmployeeList, QryEmployeeGet,
		QryLedgerList,
	}
}

// ListProjects returns all live projects, optionally filtered by status.
type ListProjects struct {
	Status string
}

func (ListProjects) QueryName() string { return QryProjectList }

// GetProject returns a single project by id.
type GetProject struct {
	ProjectID string
}

func (GetProject) QueryName() string { return QryProjectGet }

// ProjectStats returns estimate aggregates for a project.
type ProjectStats struct {
	ProjectID string
}

func (ProjectStats) QueryName() string { return QryProjectStats }

// ListEstimates returns estimates, optionally scoped to a project and status.
type ListEstimates struct {
	ProjectID string
	Status    string
}

func (ListEstimates) QueryName() string { return QryEstimateList }

// GetEstimate returns an estimate with its items.
type GetEstimate struct {
	EstimateID string
}

func (GetEstimate) QueryName() string { return QryEstimateGet }

// MarkupPlan computes the per-item markup adjustments that would bring
// an estimate to a target aggregate markup, without persisting anything.
type MarkupPlan struct {
	EstimateID string
	TargetPct  float64
}

func (MarkupPlan) QueryName() string { return QryEstimateMarkupPlan }

// ListEmployees returns all live employees.
type ListEmployees struct{}

func (ListEmployees) QueryName() string { return QryEmployeeList }

// GetEmployee returns a single employee by id.
type GetEmployee struct {
	EmployeeID string
}

func (GetEmployee) QueryName() string { return QryEmployeeGet }

// ListLedger returns change ledger entries, newest first.
type ListLedger struct {
	ModelType string
	ModelID   string
	Action    string
	Limit     int
}

func (ListLedger) QueryName() string { return QryLedgerList }
