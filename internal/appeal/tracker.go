// Package appeal links a site owner's support ticket to a request to lift
// a suspension.  A site has at most one appeal, ever; it is resolved only
// as a side effect of a lifecycle transition (Restore approves, HardDelete
// rejects).
package appeal

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/store"
)

// maxTicketID matches the appeal.ticket_id column.
const maxTicketID = 64

// Store runs transactions against the moderation schema.
type Store interface {
	InTx(ctx context.Context, fn func(store.Tx) error) error
}

// Tracker opens appeals.
type Tracker struct {
	store Store
	log   *zap.SugaredLogger
}

// New returns a Tracker.
func New(s Store, log *zap.SugaredLogger) *Tracker {
	return &Tracker{store: s, log: log}
}

// OpenAppeal records a pending appeal for siteID on behalf of accountID.
func (t *Tracker) OpenAppeal(ctx context.Context, siteID, accountID int64, ticketID string) (store.Appeal, error) {
	ticketID = strings.TrimSpace(ticketID)
	switch {
	case ticketID == "":
		return store.Appeal{}, apperr.New(apperr.InvalidArgument, "ticket_id is required")
	case len(ticketID) > maxTicketID:
		return store.Appeal{}, apperr.New(apperr.InvalidArgument, "ticket_id must be at most %d characters", maxTicketID)
	}

	ap := store.Appeal{SiteID: siteID, AccountID: accountID, TicketID: ticketID}
	err := t.store.InTx(ctx, func(tx store.Tx) error {
		site, err := tx.SiteByID(ctx, siteID)
		if err != nil {
			return err
		}
		if site.OwnerID != accountID {
			return apperr.New(apperr.Forbidden, "only the site owner can appeal")
		}
		if _, err := tx.AppealBySite(ctx, siteID); err == nil {
			return apperr.New(apperr.Conflict, "site %d already has an appeal", siteID)
		} else if !errors.Is(err, apperr.NotFound) {
			return err
		}
		// A concurrent insert loses on the unique key and surfaces as Conflict.
		ap.ID, err = tx.InsertAppeal(ctx, ap)
		return err
	})
	if err != nil {
		return store.Appeal{}, err
	}

	ap.Status = store.AppealPending
	t.log.Infow("appeal opened", "appeal_id", ap.ID, "site_id", siteID,
		"account_id", accountID, "ticket_id", ticketID)
	return ap, nil
}
