// Package report handles third-party complaints about sites: intake from
// any visitor, listing for admins, and the dismiss / reopen / ban
// workflow.
//
// Status machine:
//
//	new ─Dismiss─▶ dismissed ─Reopen─▶ new
//	new ─Ban─▶ banned ─Reopen─▶ new
//
// Banning is delegated to the lifecycle controller so the report update
// and the site suspension share one transaction.
package report

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/audit"
	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/lifecycle"
	"github.com/yanizio/sitewarden/internal/metrics"
	"github.com/yanizio/sitewarden/internal/requestinfo"
	"github.com/yanizio/sitewarden/internal/store"
)

// MaxDescription is the longest accepted free-text description.
const MaxDescription = 2000

// Input is a report submission.  The site is named by id or by path.
type Input struct {
	SiteID      int64  `json:"site_id"     validate:"required_without=SitePath"`
	SitePath    string `json:"site_path"   validate:"required_without=SiteID,omitempty,max=255"`
	Reason      string `json:"reason"      validate:"required,oneof=spam scam inappropriate_content copyright other"`
	Description string `json:"description" validate:"max=2000"`
}

// Store is the persistence the intake needs.
type Store interface {
	InTx(ctx context.Context, fn func(store.Tx) error) error
	ListReports(ctx context.Context, status string) ([]store.Report, error)
}

// Banner bans a report and suspends its site.
type Banner interface {
	BanFromReport(ctx context.Context, reportID int64) (lifecycle.Outcome, error)
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, action, targetType string, targetID int64, detail map[string]any)
}

// Intake is the report service.
type Intake struct {
	store  Store
	banner Banner
	audit  Auditor
	val    *validator.Validate
	log    *zap.SugaredLogger
}

// New wires an Intake.
func New(s Store, b Banner, a Auditor, log *zap.SugaredLogger) *Intake {
	val := validator.New()
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Intake{store: s, banner: b, audit: a, val: val, log: log}
}

// CreateReport files a report in status new.  The reporter is the
// authenticated caller if any; an owner cannot report their own site.
func (in *Intake) CreateReport(ctx context.Context, req Input) (store.Report, error) {
	req.SitePath = strings.Trim(strings.TrimSpace(req.SitePath), "/")
	req.Description = strings.TrimSpace(req.Description)
	req.Reason = strings.ToLower(strings.TrimSpace(req.Reason))
	if err := in.validate(req); err != nil {
		return store.Report{}, err
	}

	rep := store.Report{
		Reason:          req.Reason,
		Description:     req.Description,
		ReporterAddress: requestinfo.FromContext(ctx).Addr(),
	}
	reporter, hasReporter := auth.AccountID(ctx)
	if hasReporter {
		rep.ReporterID = &reporter
	}

	err := in.store.InTx(ctx, func(tx store.Tx) error {
		var (
			site store.Site
			err  error
		)
		if req.SiteID != 0 {
			site, err = tx.SiteByID(ctx, req.SiteID)
		} else {
			site, err = tx.SiteByPath(ctx, req.SitePath)
		}
		if err != nil {
			return err
		}
		if hasReporter && site.OwnerID == reporter {
			return apperr.New(apperr.Forbidden, "you cannot report your own site")
		}
		rep.SiteID = site.ID
		rep.ID, err = tx.InsertReport(ctx, rep)
		return err
	})
	if err != nil {
		return store.Report{}, err
	}

	rep.Status = store.ReportNew
	metrics.ReportsCreated.WithLabelValues(rep.Reason).Inc()
	in.log.Infow("report filed", "report_id", rep.ID, "site_id", rep.SiteID,
		"reason", rep.Reason, "reporter_id", reporter, "caller", rep.ReporterAddress)
	return rep, nil
}

// List returns reports newest first, optionally filtered by status.
func (in *Intake) List(ctx context.Context, status string) ([]store.Report, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !store.ValidReportStatus(status) {
		return nil, apperr.New(apperr.InvalidArgument, "unknown report status %q", status)
	}
	out, err := in.store.ListReports(ctx, status)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []store.Report{}
	}
	return out, nil
}

// Dismiss closes a new report without action.  Dismissing twice is a
// no-op; a banned report must be reopened first.
func (in *Intake) Dismiss(ctx context.Context, reportID int64) (store.Report, error) {
	return in.move(ctx, reportID, audit.ReportDismiss, func(cur string) (string, error) {
		switch cur {
		case store.ReportNew, store.ReportDismissed:
			return store.ReportDismissed, nil
		}
		return "", apperr.New(apperr.InvalidArgument,
			"report %d is %s; reopen it before dismissing", reportID, cur)
	})
}

// Reopen returns a dismissed or banned report to new.  It does not lift
// a suspension.
func (in *Intake) Reopen(ctx context.Context, reportID int64) (store.Report, error) {
	return in.move(ctx, reportID, audit.ReportReopen, func(string) (string, error) {
		return store.ReportNew, nil
	})
}

// Ban marks the report banned and suspends its site.
func (in *Intake) Ban(ctx context.Context, reportID int64) (lifecycle.Outcome, error) {
	return in.banner.BanFromReport(ctx, reportID)
}

// move applies one status change under a row lock.  Unchanged status is
// neither written nor audited.
func (in *Intake) move(ctx context.Context, reportID int64, action string, next func(cur string) (string, error)) (store.Report, error) {
	var (
		rep  store.Report
		from string
	)
	err := in.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		rep, err = tx.LockReport(ctx, reportID)
		if err != nil {
			return err
		}
		from = rep.Status
		to, err := next(from)
		if err != nil {
			return err
		}
		if to == from {
			return nil
		}
		if err := tx.UpdateReportStatus(ctx, reportID, to); err != nil {
			return err
		}
		rep.Status = to
		return nil
	})
	if err != nil {
		return store.Report{}, err
	}
	if rep.Status == from {
		return rep, nil
	}

	in.log.Infow("report status changed", "report_id", reportID, "from", from, "to", rep.Status)
	in.audit.Record(ctx, action, audit.TargetReport, reportID, map[string]any{
		"site_id": rep.SiteID,
		"reason":  rep.Reason,
		"from":    from,
		"to":      rep.Status,
	})
	return rep, nil
}

func (in *Intake) validate(req Input) error {
	err := in.val.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.InvalidArgument, err, "invalid report")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required_without":
		return apperr.New(apperr.InvalidArgument, "site_id or site_path is required")
	case "required":
		return apperr.New(apperr.InvalidArgument, "%s is required", fe.Field())
	case "oneof":
		return apperr.New(apperr.InvalidArgument, "reason must be one of %s",
			strings.Join(store.ReportReasons, ", "))
	case "max":
		return apperr.New(apperr.InvalidArgument, "%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return apperr.New(apperr.InvalidArgument, "%s is invalid", fe.Field())
}

