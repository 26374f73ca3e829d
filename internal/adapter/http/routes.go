package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bblanco3/erp-backend/internal/middleware"
)

// MountRoutes registers the API on the given chi router. Tenant-scoped
// routes go through the resolver, which binds the tenant and its
// database session into the request context; admin routes operate on
// the master registry and skip it.
func MountRoutes(r chi.Router, h *Handlers, resolver *middleware.TenantResolver) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		// Registry administration has no auth layer yet; keep it off
		// production deployments.
		r.Use(middleware.DevModeOnly)
		r.Post("/tenants", h.CreateTenant)
		r.Get("/tenants", h.ListTenants)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Patch("/tenants/{id}", h.UpdateTenant)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(resolver.Middleware)

		// Projects
		r.Get("/projects", h.ListProjects)
		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{id}", h.GetProject)
		r.Put("/projects/{id}", h.UpdateProject)
		r.Delete("/projects/{id}", h.DeleteProject)
		r.Get("/projects/{id}/stats", h.GetProjectStats)

		// Estimates (nested under projects)
		r.Get("/projects/{id}/estimates", h.ListProjectEstimates)
		r.Post("/projects/{id}/estimates", h.CreateEstimate)

		// Estimates (direct access)
		r.Get("/estimates", h.ListEstimates)
		r.Get("/estimates/{id}", h.GetEstimate)
		r.Put("/estimates/{id}", h.UpdateEstimate)
		r.Delete("/estimates/{id}", h.DeleteEstimate)
		r.Post("/estimates/{id}/submit", h.SubmitEstimate)
		r.Post("/estimates/{id}/approve", h.ApproveEstimate)
		r.Post("/estimates/{id}/reject", h.RejectEstimate)
		r.Post("/estimates/{id}/revise", h.ReviseEstimate)
		r.Get("/estimates/{id}/markup-plan", h.GetMarkupPlan)

		// Estimate items
		r.Post("/estimates/{id}/items", h.AddEstimateItem)
		r.Put("/estimates/{id}/items/{itemID}", h.UpdateEstimateItem)
		r.Delete("/estimates/{id}/items/{itemID}", h.DeleteEstimateItem)

		// Employees
		r.Get("/employees", h.ListEmployees)
		r.Post("/employees", h.CreateEmployee)
		r.Get("/employees/{id}", h.GetEmployee)
		r.Put("/employees/{id}", h.UpdateEmployee)
		r.Delete("/employees/{id}", h.DeleteEmployee)

		// Audit trail
		r.Get("/ledger", h.ListLedger)
	})
}
