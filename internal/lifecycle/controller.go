// internal/lifecycle/controller.go
//
// Site lifecycle state machine.
//
/*
Context
--------
Every transition body runs inside one store transaction: the site row is
locked, mutated, the strike (if any) is upserted, and the owner's strike
count is read back before commit.  Work that must not hold the
transaction open runs after commit, in this order:

  1. asset release for a hard delete (paths collected inside the tx),
  2. the audit entry for the transition,
  3. the account purge when the count reached the threshold, plus its
     own user_delete audit entry.

Transitions:

	published ─Suspend/BanFromReport─▶ suspended
	suspended ─SetProbation─▶ probation
	suspended|probation ─Restore─▶ published
	probation ─Suspend─▶ suspended
	any ─HardDelete─▶ (row removed)
*/
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/assets"
	"github.com/yanizio/sitewarden/internal/audit"
	"github.com/yanizio/sitewarden/internal/metrics"
	"github.com/yanizio/sitewarden/internal/purge"
	"github.com/yanizio/sitewarden/internal/store"
	"github.com/yanizio/sitewarden/internal/strike"
)

// DefaultGrace is the time between a suspension and its deletion deadline.
const DefaultGrace = 7 * 24 * time.Hour

// Store runs transactions against the moderation schema.
type Store interface {
	InTx(ctx context.Context, fn func(store.Tx) error) error
}

// Purger removes an account and everything it owns.
type Purger interface {
	Purge(ctx context.Context, accountID int64) (purge.Result, error)
}

// Releaser frees asset paths.
type Releaser interface {
	ReleaseAll(ctx context.Context, paths []string) assets.Summary
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, action, targetType string, targetID int64, detail map[string]any)
}

// Options tunes a Controller.
type Options struct {
	Grace time.Duration
	Now   func() time.Time
}

// Controller applies lifecycle transitions.
type Controller struct {
	store    Store
	ledger   *strike.Ledger
	purger   Purger
	releaser Releaser
	audit    Auditor
	grace    time.Duration
	now      func() time.Time
	log      *zap.SugaredLogger
}

// New wires a Controller.
func New(s Store, l *strike.Ledger, p Purger, r Releaser, a Auditor, opts Options, log *zap.SugaredLogger) *Controller {
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		store:    s,
		ledger:   l,
		purger:   p,
		releaser: r,
		audit:    a,
		grace:    opts.Grace,
		now:      func() time.Time { return opts.Now().UTC().Truncate(time.Second) },
		log:      log,
	}
}

/*──────────────────────────── transitions ─────────────────────────────────*/

// Suspend marks the site suspended, schedules deletion, and charges the
// owner a strike for this site if none exists yet.  Calling it again
// refreshes the deadline without a second strike.
func (c *Controller) Suspend(ctx context.Context, siteID int64) (Outcome, error) {
	now := c.now()
	var out Outcome
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		site, err := tx.LockSite(ctx, siteID)
		if err != nil {
			return err
		}
		out, err = c.suspendTx(ctx, tx, site, now, strike.SuspensionNote(site))
		return err
	})
	if err != nil {
		return c.fail(actSuspend, siteID, err)
	}

	c.log.Infow("site suspended", "site_id", siteID, "owner_id", out.AccountID,
		"deadline", out.DeletionScheduledFor, "strike_issued", out.StrikeIssued, "strikes", out.StrikeCount)
	c.audit.Record(ctx, audit.SiteSuspend, audit.TargetSite, siteID, out.detail())
	return c.settle(ctx, actSuspend, out)
}

// SetProbation moves a suspended site to probation and clears its
// deadline.  No strike side effects.
func (c *Controller) SetProbation(ctx context.Context, siteID int64) (Outcome, error) {
	var out Outcome
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		site, err := tx.LockSite(ctx, siteID)
		if err != nil {
			return err
		}
		if site.Status != store.SiteSuspended && site.Status != store.SiteProbation {
			return apperr.New(apperr.InvalidArgument,
				"site %d is %s; only a suspended site can be put on probation", siteID, site.Status)
		}
		if err := tx.UpdateSiteStatus(ctx, siteID, store.SiteProbation, nil); err != nil {
			return err
		}
		out = Outcome{SiteID: siteID, AccountID: site.OwnerID, Status: store.SiteProbation}
		return nil
	})
	if err != nil {
		return c.fail(actProbation, siteID, err)
	}

	c.log.Infow("site on probation", "site_id", siteID)
	c.audit.Record(ctx, audit.SiteProbation, audit.TargetSite, siteID, out.detail())
	return c.settle(ctx, actProbation, out)
}

// Restore publishes the site, clears its deadline, approves a pending
// appeal, and erases every strike that references the site.  A draft
// cannot be restored.
func (c *Controller) Restore(ctx context.Context, siteID int64) (Outcome, error) {
	now := c.now()
	var out Outcome
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		site, err := tx.LockSite(ctx, siteID)
		if err != nil {
			return err
		}
		if site.Status == store.SiteDraft {
			return apperr.New(apperr.InvalidArgument,
				"site %d is a draft; drafts are published by their owner", siteID)
		}
		if err := tx.UpdateSiteStatus(ctx, siteID, store.SitePublished, nil); err != nil {
			return err
		}
		approved, err := resolveApproved(ctx, tx, siteID, now)
		if err != nil {
			return err
		}
		cleared, err := c.ledger.ClearStrikesForSite(ctx, tx, siteID)
		if err != nil {
			return err
		}
		out = Outcome{
			SiteID:         siteID,
			AccountID:      site.OwnerID,
			Status:         store.SitePublished,
			StrikesCleared: cleared,
		}
		if approved {
			out.AppealResolved = store.AppealApproved
		}
		return nil
	})
	if err != nil {
		return c.fail(actRestore, siteID, err)
	}

	c.log.Infow("site restored", "site_id", siteID, "strikes_cleared", out.StrikesCleared,
		"appeal", out.AppealResolved)
	c.audit.Record(ctx, audit.SiteRestore, audit.TargetSite, siteID, out.detail())
	return c.settle(ctx, actRestore, out)
}

// HardDelete rejects a pending appeal, charges the strike if absent, and
// removes the site row.  Its non-default assets are released after
// commit.
func (c *Controller) HardDelete(ctx context.Context, siteID int64) (Outcome, error) {
	now := c.now()
	var (
		out   Outcome
		paths []string
	)
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		site, err := tx.LockSite(ctx, siteID)
		if err != nil {
			return err
		}
		rejected, err := resolveRejected(ctx, tx, siteID, now)
		if err != nil {
			return err
		}
		paths = assets.SiteAssets(site)

		issued, err := c.ledger.RecordStrike(ctx, tx, site.OwnerID, siteID, strike.RemovalNote(site))
		if err != nil {
			return err
		}
		if err := tx.DeleteSite(ctx, siteID); err != nil {
			return err
		}
		count, err := c.ledger.CountStrikes(ctx, tx, site.OwnerID)
		if err != nil {
			return err
		}
		out = Outcome{
			SiteID:       siteID,
			AccountID:    site.OwnerID,
			Status:       StatusDeleted,
			StrikeIssued: issued,
			StrikeCount:  count,
			title:        site.Title,
			path:         site.Path,
		}
		if rejected {
			out.AppealResolved = store.AppealRejected
		}
		return nil
	})
	if err != nil {
		return c.fail(actDelete, siteID, err)
	}

	sum := c.releaser.ReleaseAll(ctx, paths)
	out.Assets = &sum

	c.log.Infow("site deleted", "site_id", siteID, "owner_id", out.AccountID,
		"strike_issued", out.StrikeIssued, "strikes", out.StrikeCount,
		"assets_released", len(sum.Released), "assets_failed", len(sum.Failed))
	c.audit.Record(ctx, audit.SiteDelete, audit.TargetSite, siteID, out.detail())
	return c.settle(ctx, actDelete, out)
}

// BanFromReport marks the report banned and suspends its site exactly as
// Suspend does, with a strike note naming the report and its reason.
func (c *Controller) BanFromReport(ctx context.Context, reportID int64) (Outcome, error) {
	now := c.now()
	var out Outcome
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		rep, err := tx.LockReport(ctx, reportID)
		if err != nil {
			return err
		}
		if rep.Status == store.ReportDismissed {
			return apperr.New(apperr.InvalidArgument,
				"report %d is dismissed; reopen it before banning", reportID)
		}
		site, err := tx.LockSite(ctx, rep.SiteID)
		if err != nil {
			return err
		}
		if err := tx.UpdateReportStatus(ctx, reportID, store.ReportBanned); err != nil {
			return err
		}
		out, err = c.suspendTx(ctx, tx, site, now, strike.ReportNote(site, rep))
		if err != nil {
			return err
		}
		out.ReportID = reportID
		out.reason = rep.Reason
		return nil
	})
	if err != nil {
		return c.fail(actBan, reportID, err)
	}

	c.log.Infow("report banned", "report_id", reportID, "site_id", out.SiteID,
		"strike_issued", out.StrikeIssued, "strikes", out.StrikeCount)
	c.audit.Record(ctx, audit.ReportBan, audit.TargetReport, reportID, out.detail())
	return c.settle(ctx, actBan, out)
}

// Overdue lists suspended sites whose deletion deadline has passed.  It
// only reports them; deleting is left to an admin.
func (c *Controller) Overdue(ctx context.Context) ([]store.Site, error) {
	now := c.now()
	var out []store.Site
	err := c.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.OverdueSuspensions(ctx, now)
		return err
	})
	return out, err
}

/*──────────────────────────── shared steps ────────────────────────────────*/

func (c *Controller) suspendTx(ctx context.Context, tx store.Tx, site store.Site, now time.Time, note string) (Outcome, error) {
	deadline := now.Add(c.grace)
	if err := tx.UpdateSiteStatus(ctx, site.ID, store.SiteSuspended, &deadline); err != nil {
		return Outcome{}, err
	}
	issued, err := c.ledger.RecordStrike(ctx, tx, site.OwnerID, site.ID, note)
	if err != nil {
		return Outcome{}, err
	}
	count, err := c.ledger.CountStrikes(ctx, tx, site.OwnerID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		SiteID:               site.ID,
		AccountID:            site.OwnerID,
		Status:               store.SiteSuspended,
		DeletionScheduledFor: &deadline,
		StrikeIssued:         issued,
		StrikeCount:          count,
		title:                site.Title,
		path:                 site.Path,
	}, nil
}

// settle runs after commit: it applies the threshold policy and fills
// the caller-facing signal and message.
func (c *Controller) settle(ctx context.Context, action string, out Outcome) (Outcome, error) {
	if out.StrikeIssued {
		metrics.StrikesIssued.Inc()
	}
	out.StrikeThreshold = c.ledger.Threshold()

	if out.Status == store.SiteProbation || out.Status == store.SitePublished || !c.ledger.Crossed(out.StrikeCount) {
		out.Signal = SignalOK
		out.Message = okMessage(action, out)
		metrics.Transitions.WithLabelValues(action, "ok").Inc()
		return out, nil
	}

	res, err := c.purger.Purge(ctx, out.AccountID)
	if err != nil && !errors.Is(err, apperr.NotFound) {
		metrics.Transitions.WithLabelValues(action, "error").Inc()
		c.log.Errorw("strike threshold reached but purge failed",
			"action", action, "account_id", out.AccountID, "strikes", out.StrikeCount, "err", err)
		out.Signal = SignalOK
		out.Message = okMessage(action, out)
		return out, fmt.Errorf("%s committed; purge of account %d failed: %w", action, out.AccountID, err)
	}

	out.Signal = SignalAccountDeleted
	out.Purge = &res
	out.Message = deletedMessage(action, out)
	metrics.Transitions.WithLabelValues(action, "account_deleted").Inc()

	c.log.Warnw("account purged by strike threshold",
		"account_id", out.AccountID, "strikes", out.StrikeCount, "trigger", action, "site_id", out.SiteID)
	c.audit.Record(ctx, audit.UserDelete, audit.TargetUser, out.AccountID, map[string]any{
		"reason":          "strike_threshold",
		"strikes":         out.StrikeCount,
		"trigger_action":  action,
		"trigger_site_id": out.SiteID,
		"sites_removed":   res.SiteIDs,
		"assets":          res.Assets,
	})
	return out, nil
}

func (c *Controller) fail(action string, id int64, err error) (Outcome, error) {
	metrics.Transitions.WithLabelValues(action, "error").Inc()
	if apperr.KindOf(err) == apperr.Internal {
		c.log.Errorw("transition failed", "action", action, "id", id, "err", err)
	}
	return Outcome{}, err
}

// resolveApproved and resolveRejected close a pending appeal for the
// site.  They are only reachable through Restore and HardDelete.
func resolveApproved(ctx context.Context, tx store.Tx, siteID int64, at time.Time) (bool, error) {
	return tx.ResolvePendingAppeal(ctx, siteID, store.AppealApproved, at)
}

func resolveRejected(ctx context.Context, tx store.Tx, siteID int64, at time.Time) (bool, error) {
	return tx.ResolvePendingAppeal(ctx, siteID, store.AppealRejected, at)
}
