package store

import "context"

// AccountByID fetches one account.
func (q *Queries) AccountByID(ctx context.Context, id int64) (Account, error) {
	var a Account
	err := q.get(ctx, &a, "account", id,
		`SELECT id, username, role, status, avatar_path, created_at FROM account WHERE id = ?`, id)
	return a, err
}

// AccountRole returns the role of an active account.
func (q *Queries) AccountRole(ctx context.Context, id int64) (string, error) {
	var role string
	err := q.get(ctx, &role, "account", id,
		`SELECT role FROM account WHERE id = ? AND status = 'active'`, id)
	return role, err
}

// DeleteAccount removes the account row.  Foreign keys cascade to its
// sites, strikes, and appeals.
func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	return q.execOne(ctx, "account", id, `DELETE FROM account WHERE id = ?`, id)
}
