// internal/admin/handlers.go
//
// Admin and public moderation endpoints.
//
// Every handler is a thin adapter: parse the route and body, call one
// service method, render the result.  Business rules and auditing live in
// the services; the only audit entries written here are for the purge and
// flag endpoints, which have no service of their own.

package admin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/audit"
	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/flags"
	"github.com/yanizio/sitewarden/internal/lifecycle"
	"github.com/yanizio/sitewarden/internal/purge"
	"github.com/yanizio/sitewarden/internal/report"
	"github.com/yanizio/sitewarden/internal/store"
)

/*──────────────────────────── collaborators ───────────────────────────────*/

// Lifecycle applies site transitions.
type Lifecycle interface {
	Suspend(ctx context.Context, siteID int64) (lifecycle.Outcome, error)
	SetProbation(ctx context.Context, siteID int64) (lifecycle.Outcome, error)
	Restore(ctx context.Context, siteID int64) (lifecycle.Outcome, error)
	HardDelete(ctx context.Context, siteID int64) (lifecycle.Outcome, error)
	Overdue(ctx context.Context) ([]store.Site, error)
}

// Reports is the report workflow.
type Reports interface {
	CreateReport(ctx context.Context, in report.Input) (store.Report, error)
	List(ctx context.Context, status string) ([]store.Report, error)
	Dismiss(ctx context.Context, id int64) (store.Report, error)
	Reopen(ctx context.Context, id int64) (store.Report, error)
	Ban(ctx context.Context, id int64) (lifecycle.Outcome, error)
}

// Appeals opens appeals.
type Appeals interface {
	OpenAppeal(ctx context.Context, siteID, accountID int64, ticketID string) (store.Appeal, error)
}

// Purger removes accounts.
type Purger interface {
	Purge(ctx context.Context, accountID int64) (purge.Result, error)
}

// Flags reads and writes platform switches.
type Flags interface {
	Enabled(ctx context.Context, name string) bool
	Set(ctx context.Context, name string, on bool) error
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, action, targetType string, targetID int64, detail map[string]any)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the moderation API.
type Handler struct {
	Lifecycle Lifecycle
	Reports   Reports
	Appeals   Appeals
	Purger    Purger
	Flags     Flags
	Audit     Auditor
	Health    Pinger
	Log       *zap.SugaredLogger
}

/*──────────────────────────── public ──────────────────────────────────────*/

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Health.Ping(ctx); err != nil {
		writeError(w, r, h.Log, apperr.Wrap(apperr.Unavailable, err, "database unreachable"))
		return
	}
	writeOK(w, http.StatusOK, nil)
}

// maintenance rejects public writes while maintenance_mode is on.
func (h *Handler) maintenance(w http.ResponseWriter, r *http.Request) bool {
	if !h.Flags.Enabled(r.Context(), flags.MaintenanceMode) {
		return false
	}
	writeError(w, r, h.Log, apperr.New(apperr.Unavailable,
		"the platform is in maintenance mode; try again later"))
	return true
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request) {
	if h.maintenance(w, r) {
		return
	}
	var in report.Input
	if err := decode(r, &in); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	rep, err := h.Reports.CreateReport(r.Context(), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{
		"message": "Thank you. The report was submitted for review.",
		"report":  rep,
	})
}

type appealRequest struct {
	SiteID   int64  `json:"site_id"`
	TicketID string `json:"ticket_id"`
}

func (h *Handler) createAppeal(w http.ResponseWriter, r *http.Request) {
	if h.maintenance(w, r) {
		return
	}
	var req appealRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.SiteID <= 0 {
		writeError(w, r, h.Log, apperr.New(apperr.InvalidArgument, "site_id is required"))
		return
	}
	caller, _ := auth.FromContext(r.Context())
	ap, err := h.Appeals.OpenAppeal(r.Context(), req.SiteID, caller.AccountID, req.TicketID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{
		"message": "Appeal recorded. An administrator will review it.",
		"appeal":  ap,
	})
}

/*──────────────────────────── reports ─────────────────────────────────────*/

func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	list, err := h.Reports.List(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"reports": list})
}

// reportMove adapts Dismiss and Reopen.
func (h *Handler) reportMove(fn func(context.Context, int64) (store.Report, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		rep, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeOK(w, http.StatusOK, envelope{
			"message": fmt.Sprintf("Report %d is %s.", rep.ID, rep.Status),
			"report":  rep,
		})
	}
}

/*──────────────────────────── transitions ─────────────────────────────────*/

// transition adapts any id → Outcome service call.
func (h *Handler) transition(fn func(context.Context, int64) (lifecycle.Outcome, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		out, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		writeOutcome(w, out)
	}
}

func (h *Handler) overdue(w http.ResponseWriter, r *http.Request) {
	sites, err := h.Lifecycle.Overdue(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if sites == nil {
		sites = []store.Site{}
	}
	writeOK(w, http.StatusOK, envelope{"sites": sites})
}

/*──────────────────────────── accounts ────────────────────────────────────*/

func (h *Handler) purgeAccount(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if caller, _ := auth.FromContext(r.Context()); caller.AccountID == id {
		writeError(w, r, h.Log, apperr.New(apperr.Forbidden, "you cannot delete your own account here"))
		return
	}
	res, err := h.Purger.Purge(r.Context(), id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Audit.Record(r.Context(), audit.UserDelete, audit.TargetUser, id, map[string]any{
		"reason":        "admin",
		"sites_removed": res.SiteIDs,
		"assets":        res.Assets,
	})
	writeOK(w, http.StatusOK, envelope{
		"signal":  lifecycle.SignalAccountDeleted,
		"message": fmt.Sprintf("Account %d and %d site(s) were deleted.", id, len(res.SiteIDs)),
		"result":  res,
	})
}

/*──────────────────────────── flags ───────────────────────────────────────*/

type flagRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *Handler) flagName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := strings.ToLower(chi.URLParam(r, "name"))
	if !flags.Known(name) {
		writeError(w, r, h.Log, apperr.New(apperr.NotFound, "unknown flag %q", name))
		return "", false
	}
	return name, true
}

func (h *Handler) getFlag(w http.ResponseWriter, r *http.Request) {
	name, ok := h.flagName(w, r)
	if !ok {
		return
	}
	writeOK(w, http.StatusOK, envelope{"name": name, "enabled": h.Flags.Enabled(r.Context(), name)})
}

func (h *Handler) putFlag(w http.ResponseWriter, r *http.Request) {
	name, ok := h.flagName(w, r)
	if !ok {
		return
	}
	var req flagRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, r, h.Log, apperr.New(apperr.InvalidArgument, "enabled is required"))
		return
	}
	if err := h.Flags.Set(r.Context(), name, *req.Enabled); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	h.Audit.Record(r.Context(), audit.FlagUpdate, audit.TargetFlag, 0, map[string]any{
		"name":    name,
		"enabled": *req.Enabled,
	})
	writeOK(w, http.StatusOK, envelope{"name": name, "enabled": *req.Enabled})
}
