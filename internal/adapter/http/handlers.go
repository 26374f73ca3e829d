package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bblanco3/erp-backend/internal/bus"
	"github.com/bblanco3/erp-backend/internal/domain/tenant"
	"github.com/bblanco3/erp-backend/internal/service"
)

const defaultBodyLimit = 1 << 20 // 1 MiB

// Dispatcher is the bus surface the handlers use. *bus.Bus satisfies it,
// as does the instrumented wrapper.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd bus.Command) (any, error)
	Ask(ctx context.Context, q bus.Query) (any, error)
}

// Handlers adapts HTTP requests into bus commands and queries.
type Handlers struct {
	bus       Dispatcher
	tenants   *service.TenantService
	bodyLimit int64
	log       *slog.Logger
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(b Dispatcher, tenants *service.TenantService, log *slog.Logger) *Handlers {
	return &Handlers{bus: b, tenants: tenants, bodyLimit: defaultBodyLimit, log: log}
}

// dispatch runs a command and writes the result or the mapped error.
func (h *Handlers) dispatch(w http.ResponseWriter, r *http.Request, cmd bus.Command, status int, notFoundMsg string) {
	res, err := h.bus.Dispatch(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, err, notFoundMsg)
		return
	}
	writeJSON(w, status, res)
}

// ask runs a query and writes the result or the mapped error.
func (h *Handlers) ask(w http.ResponseWriter, r *http.Request, q bus.Query, notFoundMsg string) {
	res, err := h.bus.Ask(r.Context(), q)
	if err != nil {
		writeDomainError(w, err, notFoundMsg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ---------------------------------------------------------------------------
// Projects
// ---------------------------------------------------------------------------

type projectRequest struct {
	Name        string    `json:"name"`
	ClientName  string    `json:"client_name"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date,omitzero"`
	EndDate     time.Time `json:"end_date,omitzero"`
}

func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[projectRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.CreateProject{
		ActorID:     actorID(r),
		Name:        req.Name,
		ClientName:  req.ClientName,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}, http.StatusCreated, "project not found")
}

func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[projectRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.UpdateProject{
		ActorID:     actorID(r),
		ProjectID:   urlParam(r, "id"),
		Name:        req.Name,
		ClientName:  req.ClientName,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}, http.StatusOK, "project not found")
}

func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.DeleteProject{
		ActorID:   actorID(r),
		ProjectID: urlParam(r, "id"),
	}, http.StatusOK, "project not found")
}

func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.ListProjects{Status: r.URL.Query().Get("status")}, "projects not found")
}

func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.GetProject{ProjectID: urlParam(r, "id")}, "project not found")
}

func (h *Handlers) GetProjectStats(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.ProjectStats{ProjectID: urlParam(r, "id")}, "project not found")
}

// ---------------------------------------------------------------------------
// Estimates
// ---------------------------------------------------------------------------

type itemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	MarkupPct   float64 `json:"markup_pct"`
	Position    int     `json:"position"`
}

func (it itemRequest) input() service.ItemInput {
	return service.ItemInput{
		Description: it.Description,
		Quantity:    it.Quantity,
		UnitPrice:   it.UnitPrice,
		MarkupPct:   it.MarkupPct,
		Position:    it.Position,
	}
}

type estimateRequest struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Items       []itemRequest `json:"items"`
}

func (h *Handlers) CreateEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[estimateRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	cmd := service.CreateEstimate{
		ActorID:     actorID(r),
		ProjectID:   urlParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
	}
	for _, it := range req.Items {
		cmd.Items = append(cmd.Items, it.input())
	}
	h.dispatch(w, r, cmd, http.StatusCreated, "project not found")
}

func (h *Handlers) UpdateEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[estimateRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.UpdateEstimate{
		ActorID:     actorID(r),
		EstimateID:  urlParam(r, "id"),
		Title:       req.Title,
		Description: req.Description,
	}, http.StatusOK, "estimate not found")
}

func (h *Handlers) DeleteEstimate(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.DeleteEstimate{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
	}, http.StatusOK, "estimate not found")
}

func (h *Handlers) SubmitEstimate(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.SubmitEstimate{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
	}, http.StatusOK, "estimate not found")
}

func (h *Handlers) ApproveEstimate(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.ApproveEstimate{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
	}, http.StatusOK, "estimate not found")
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handlers) RejectEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[rejectRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.RejectEstimate{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
		Reason:     req.Reason,
	}, http.StatusOK, "estimate not found")
}

func (h *Handlers) ReviseEstimate(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.ReviseEstimate{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
	}, http.StatusCreated, "estimate not found")
}

func (h *Handlers) AddEstimateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[itemRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.AddEstimateItem{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
		Item:       req.input(),
	}, http.StatusCreated, "estimate not found")
}

func (h *Handlers) UpdateEstimateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[itemRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.UpdateEstimateItem{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
		ItemID:     urlParam(r, "itemID"),
		Item:       req.input(),
	}, http.StatusOK, "estimate item not found")
}

func (h *Handlers) DeleteEstimateItem(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.DeleteEstimateItem{
		ActorID:    actorID(r),
		EstimateID: urlParam(r, "id"),
		ItemID:     urlParam(r, "itemID"),
	}, http.StatusOK, "estimate item not found")
}

func (h *Handlers) ListEstimates(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.ListEstimates{
		ProjectID: r.URL.Query().Get("project_id"),
		Status:    r.URL.Query().Get("status"),
	}, "estimates not found")
}

func (h *Handlers) ListProjectEstimates(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.ListEstimates{
		ProjectID: urlParam(r, "id"),
		Status:    r.URL.Query().Get("status"),
	}, "project not found")
}

func (h *Handlers) GetEstimate(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.GetEstimate{EstimateID: urlParam(r, "id")}, "estimate not found")
}

func (h *Handlers) GetMarkupPlan(w http.ResponseWriter, r *http.Request) {
	pct, err := strconv.ParseFloat(r.URL.Query().Get("target_pct"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "target_pct must be a number")
		return
	}
	h.ask(w, r, service.MarkupPlan{
		EstimateID: urlParam(r, "id"),
		TargetPct:  pct,
	}, "estimate not found")
}

// ---------------------------------------------------------------------------
// Employees
// ---------------------------------------------------------------------------

type employeeRequest struct {
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	HourlyRate float64 `json:"hourly_rate"`
}

func (h *Handlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[employeeRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.CreateEmployee{
		ActorID:    actorID(r),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Role:       req.Role,
		HourlyRate: req.HourlyRate,
	}, http.StatusCreated, "employee not found")
}

func (h *Handlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[employeeRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	h.dispatch(w, r, service.UpdateEmployee{
		ActorID:    actorID(r),
		EmployeeID: urlParam(r, "id"),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Role:       req.Role,
		HourlyRate: req.HourlyRate,
	}, http.StatusOK, "employee not found")
}

func (h *Handlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, service.DeleteEmployee{
		ActorID:    actorID(r),
		EmployeeID: urlParam(r, "id"),
	}, http.StatusOK, "employee not found")
}

func (h *Handlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.ListEmployees{}, "employees not found")
}

func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	h.ask(w, r, service.GetEmployee{EmployeeID: urlParam(r, "id")}, "employee not found")
}

// ---------------------------------------------------------------------------
// Change ledger
// ---------------------------------------------------------------------------

func (h *Handlers) ListLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	h.ask(w, r, service.ListLedger{
		ModelType: q.Get("model_type"),
		ModelID:   q.Get("model_id"),
		Action:    q.Get("action"),
		Limit:     limit,
	}, "ledger not found")
}

// ---------------------------------------------------------------------------
// Tenant administration (master scope, no tenant binding)
// ---------------------------------------------------------------------------

func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.CreateRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	t, err := h.tenants.Provision(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	ts, err := h.tenants.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "tenants not found")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenants.ByID(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenant.UpdateRequest](w, r, h.bodyLimit)
	if !ok {
		return
	}
	t, err := h.tenants.Update(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
