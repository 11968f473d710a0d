package store

import (
	"context"
	"fmt"

	"github.com/yanizio/sitewarden/internal/database"
)

// InsertStrike writes one strike for (accountID, siteID) unless the pair
// already has one.  The unique key rejects the duplicate; inserted reports
// whether a new row was written.  The result does not depend on the
// driver's affected-rows mode.
func (q *Queries) InsertStrike(ctx context.Context, accountID, siteID int64, note string) (bool, error) {
	_, err := q.x.ExecContext(ctx,
		`INSERT INTO strike (account_id, site_id, note) VALUES (?, ?, ?)`,
		accountID, siteID, note)
	switch {
	case err == nil:
		return true, nil
	case database.IsDuplicateKey(err):
		return false, nil
	}
	return false, fmt.Errorf("insert strike account=%d site=%d: %w", accountID, siteID, err)
}

// CountStrikes counts strikes across every site for an account.
func (q *Queries) CountStrikes(ctx context.Context, accountID int64) (int, error) {
	var n int
	if err := q.get(ctx, &n, "strike count for account", accountID,
		`SELECT COUNT(*) FROM strike WHERE account_id = ?`, accountID); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteStrikesForSite removes every strike referencing siteID.
func (q *Queries) DeleteStrikesForSite(ctx context.Context, siteID int64) (int64, error) {
	return q.exec(ctx, fmt.Sprintf("clear strikes site=%d", siteID),
		`DELETE FROM strike WHERE site_id = ?`, siteID)
}
