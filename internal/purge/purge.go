// Package purge removes an account and everything it owns.
//
// A purge runs in three separate steps: collect the asset paths to free,
// release them all (concurrently, best-effort), then delete the account
// row and let the schema cascade remove its sites, strikes, and appeals.
// Every release is attempted before the row delete is issued.
package purge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/assets"
	"github.com/yanizio/sitewarden/internal/metrics"
	"github.com/yanizio/sitewarden/internal/store"
)

// Store runs transactions against the moderation schema.
type Store interface {
	InTx(ctx context.Context, fn func(store.Tx) error) error
}

// Releaser frees asset paths.
type Releaser interface {
	ReleaseAll(ctx context.Context, paths []string) assets.Summary
}

// Plan is the collected set of things a purge will remove.
type Plan struct {
	AccountID int64    `json:"account_id"`
	SiteIDs   []int64  `json:"site_ids"`
	Assets    []string `json:"assets"`
}

// Result reports a finished purge.
type Result struct {
	Plan
	Assets assets.Summary `json:"asset_release"`
}

// Orchestrator executes purges.
type Orchestrator struct {
	store    Store
	releaser Releaser
	log      *zap.SugaredLogger
}

// New returns an Orchestrator.
func New(s Store, r Releaser, log *zap.SugaredLogger) *Orchestrator {
	return &Orchestrator{store: s, releaser: r, log: log}
}

// Collect reads the account and its sites and lists the releasable assets.
// It returns NotFound when the account does not exist.
func (o *Orchestrator) Collect(ctx context.Context, accountID int64) (Plan, error) {
	var plan Plan
	err := o.store.InTx(ctx, func(tx store.Tx) error {
		acct, err := tx.AccountByID(ctx, accountID)
		if err != nil {
			return err
		}
		sites, err := tx.SitesByOwner(ctx, accountID)
		if err != nil {
			return err
		}
		plan = Plan{AccountID: acct.ID, Assets: assets.AccountAssets(acct, sites)}
		for _, s := range sites {
			plan.SiteIDs = append(plan.SiteIDs, s.ID)
		}
		return nil
	})
	return plan, err
}

// Purge collects, releases, and deletes.  Asset failures never abort it;
// a failure to delete the account row does.
func (o *Orchestrator) Purge(ctx context.Context, accountID int64) (Result, error) {
	plan, err := o.Collect(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	return o.Execute(ctx, plan)
}

// Execute releases plan.Assets and deletes the account row.
func (o *Orchestrator) Execute(ctx context.Context, plan Plan) (Result, error) {
	res := Result{Plan: plan}
	res.Assets = o.releaser.ReleaseAll(ctx, plan.Assets)

	// The purge must finish even if the caller goes away.
	dctx := context.WithoutCancel(ctx)
	if err := o.store.InTx(dctx, func(tx store.Tx) error {
		return tx.DeleteAccount(dctx, plan.AccountID)
	}); err != nil {
		o.log.Errorw("account purge failed after asset release",
			"account_id", plan.AccountID, "assets_released", len(res.Assets.Released), "err", err)
		return res, fmt.Errorf("purge account %d: %w", plan.AccountID, err)
	}

	metrics.AccountPurges.Inc()
	o.log.Infow("account purged",
		"account_id", plan.AccountID,
		"sites", len(plan.SiteIDs),
		"assets_released", len(res.Assets.Released),
		"assets_missing", len(res.Assets.Missing),
		"assets_failed", len(res.Assets.Failed),
	)
	return res, nil
}
