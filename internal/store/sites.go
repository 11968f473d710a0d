package store

import (
	"context"
	"fmt"
	"time"
)

const siteColumns = `id, owner_id, title, path, logo_path, cover_path, status,
       deletion_scheduled_for, created_at, updated_at`

// SiteByID fetches one site.
func (q *Queries) SiteByID(ctx context.Context, id int64) (Site, error) {
	var s Site
	err := q.get(ctx, &s, "site", id,
		`SELECT `+siteColumns+` FROM site WHERE id = ?`, id)
	return s, err
}

// LockSite fetches one site and holds a row lock until the surrounding
// transaction ends.  Outside a transaction it behaves like SiteByID.
func (q *Queries) LockSite(ctx context.Context, id int64) (Site, error) {
	var s Site
	err := q.get(ctx, &s, "site", id,
		`SELECT `+siteColumns+` FROM site WHERE id = ? FOR UPDATE`, id)
	return s, err
}

// SiteByPath resolves a site by its external address.
func (q *Queries) SiteByPath(ctx context.Context, path string) (Site, error) {
	var s Site
	err := q.get(ctx, &s, "site", path,
		`SELECT `+siteColumns+` FROM site WHERE path = ?`, path)
	return s, err
}

// SitesByOwner lists every site an account owns.
func (q *Queries) SitesByOwner(ctx context.Context, ownerID int64) ([]Site, error) {
	var out []Site
	if err := selectContext(ctx, q, &out,
		`SELECT `+siteColumns+` FROM site WHERE owner_id = ? ORDER BY id`, ownerID); err != nil {
		return nil, fmt.Errorf("sites of account %d: %w", ownerID, err)
	}
	return out, nil
}

// UpdateSiteStatus sets status and the deletion deadline (nil clears it).
func (q *Queries) UpdateSiteStatus(ctx context.Context, id int64, status string, deadline *time.Time) error {
	_, err := q.exec(ctx, fmt.Sprintf("update site %d", id),
		`UPDATE site SET status = ?, deletion_scheduled_for = ? WHERE id = ?`,
		status, deadline, id)
	return err
}

// DeleteSite removes the site row.
func (q *Queries) DeleteSite(ctx context.Context, id int64) error {
	return q.execOne(ctx, "site", id, `DELETE FROM site WHERE id = ?`, id)
}

// OverdueSuspensions lists suspended sites whose deadline is at or before
// now, oldest deadline first.
func (q *Queries) OverdueSuspensions(ctx context.Context, now time.Time) ([]Site, error) {
	var out []Site
	if err := selectContext(ctx, q, &out,
		`SELECT `+siteColumns+` FROM site
		 WHERE status = ? AND deletion_scheduled_for IS NOT NULL AND deletion_scheduled_for <= ?
		 ORDER BY deletion_scheduled_for`, SiteSuspended, now); err != nil {
		return nil, fmt.Errorf("overdue suspensions: %w", err)
	}
	return out, nil
}
