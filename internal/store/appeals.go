package store

import (
	"context"
	"fmt"
	"time"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/database"
)

// AppealBySite fetches the single appeal for a site.
func (q *Queries) AppealBySite(ctx context.Context, siteID int64) (Appeal, error) {
	var a Appeal
	err := q.get(ctx, &a, "appeal for site", siteID,
		`SELECT id, site_id, account_id, ticket_id, status, created_at, resolved_at
		 FROM appeal WHERE site_id = ?`, siteID)
	return a, err
}

// InsertAppeal writes a pending appeal.  A second appeal for the same site
// violates uq_appeal_site and comes back as Conflict.
func (q *Queries) InsertAppeal(ctx context.Context, a Appeal) (int64, error) {
	res, err := q.x.ExecContext(ctx,
		`INSERT INTO appeal (site_id, account_id, ticket_id, status) VALUES (?, ?, ?, ?)`,
		a.SiteID, a.AccountID, a.TicketID, AppealPending)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return 0, apperr.Wrap(apperr.Conflict, err, "site %d already has an appeal", a.SiteID)
		}
		return 0, fmt.Errorf("insert appeal site=%d: %w", a.SiteID, err)
	}
	return res.LastInsertId()
}

// ResolvePendingAppeal moves a pending appeal to status and stamps
// resolved_at.  resolved reports whether a pending appeal existed.
func (q *Queries) ResolvePendingAppeal(ctx context.Context, siteID int64, status string, at time.Time) (bool, error) {
	n, err := q.exec(ctx, fmt.Sprintf("resolve appeal site=%d", siteID),
		`UPDATE appeal SET status = ?, resolved_at = ? WHERE site_id = ? AND status = ?`,
		status, at, siteID, AppealPending)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
