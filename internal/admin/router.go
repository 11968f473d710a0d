// internal/admin/router.go
//
// Route table for the moderation API.
//
// Middleware order (outermost first):
//
//	Security → requestinfo.Enrich → auth.Middleware → route
//
// so that the caller address is known before identity is checked and both
// are in the context by the time a service records an audit entry.
//
//	GET    /healthz
//	GET    /metrics
//	POST   /api/reports                       any caller, maintenance-gated
//	POST   /api/appeals                       authenticated, maintenance-gated
//	GET    /api/admin/reports?status=
//	POST   /api/admin/reports/{id}/dismiss|reopen|ban
//	GET    /api/admin/sites/overdue
//	POST   /api/admin/sites/{id}/suspend|probation|restore
//	DELETE /api/admin/sites/{id}
//	DELETE /api/admin/accounts/{id}
//	GET    /api/admin/flags/{name}
//	PUT    /api/admin/flags/{name}

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/sitewarden/internal/acl"
	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/middleware"
	"github.com/yanizio/sitewarden/internal/requestinfo"
	"github.com/yanizio/sitewarden/internal/store"
)

// NewRouter builds the full HTTP handler.
func NewRouter(h *Handler, p auth.Provider) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Security)
	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(requestinfo.Enrich, auth.Middleware(p))
		r.Mount("/api", h.Routes())
	})
	return r
}

// Routes returns the router mounted at /api.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{
			"ok":    false,
			"error": errorBody{Code: "not_found", Message: "no such endpoint"},
		})
	})

	r.Post("/reports", h.createReport)
	r.With(acl.RequireAuthenticated).Post("/appeals", h.createAppeal)

	r.Route("/admin", func(r chi.Router) {
		r.Use(acl.RequireRole(store.RoleAdmin))

		r.Get("/reports", h.listReports)
		r.Post("/reports/{id}/dismiss", h.reportMove(h.Reports.Dismiss))
		r.Post("/reports/{id}/reopen", h.reportMove(h.Reports.Reopen))
		r.Post("/reports/{id}/ban", h.transition(h.Reports.Ban))

		r.Get("/sites/overdue", h.overdue)
		r.Post("/sites/{id}/suspend", h.transition(h.Lifecycle.Suspend))
		r.Post("/sites/{id}/probation", h.transition(h.Lifecycle.SetProbation))
		r.Post("/sites/{id}/restore", h.transition(h.Lifecycle.Restore))
		r.Delete("/sites/{id}", h.transition(h.Lifecycle.HardDelete))

		r.Delete("/accounts/{id}", h.purgeAccount)

		r.Get("/flags/{name}", h.getFlag)
		r.Put("/flags/{name}", h.putFlag)
	})
	return r
}
