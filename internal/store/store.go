// internal/store/store.go
//
// MySQL persistence for the moderation engine.
//
// Context
// -------
// Queries binds every SQL helper to a sqlx.ExtContext, so the same code
// runs against the pool or inside a transaction.  DB.InTx is the single
// entry point for multi-step transitions: the callback receives a Tx and
// everything it does commits or rolls back together.
//
// Missing rows come back as apperr NotFound errors; other driver faults
// are wrapped with the operation name.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/database"
)

// Tx is the transactional surface the moderation services depend on.
type Tx interface {
	AccountByID(ctx context.Context, id int64) (Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	SiteByID(ctx context.Context, id int64) (Site, error)
	LockSite(ctx context.Context, id int64) (Site, error)
	SiteByPath(ctx context.Context, path string) (Site, error)
	SitesByOwner(ctx context.Context, ownerID int64) ([]Site, error)
	UpdateSiteStatus(ctx context.Context, id int64, status string, deadline *time.Time) error
	DeleteSite(ctx context.Context, id int64) error
	OverdueSuspensions(ctx context.Context, now time.Time) ([]Site, error)

	InsertStrike(ctx context.Context, accountID, siteID int64, note string) (bool, error)
	CountStrikes(ctx context.Context, accountID int64) (int, error)
	DeleteStrikesForSite(ctx context.Context, siteID int64) (int64, error)

	AppealBySite(ctx context.Context, siteID int64) (Appeal, error)
	InsertAppeal(ctx context.Context, a Appeal) (int64, error)
	ResolvePendingAppeal(ctx context.Context, siteID int64, status string, at time.Time) (bool, error)

	InsertReport(ctx context.Context, r Report) (int64, error)
	ReportByID(ctx context.Context, id int64) (Report, error)
	LockReport(ctx context.Context, id int64) (Report, error)
	ListReports(ctx context.Context, status string) ([]Report, error)
	UpdateReportStatus(ctx context.Context, id int64, status string) error
}

// Queries implements Tx over any sqlx executor.
type Queries struct {
	x sqlx.ExtContext
}

var _ Tx = (*Queries)(nil)

// NewQueries binds the helpers to x (a *sqlx.DB or *sqlx.Tx).
func NewQueries(x sqlx.ExtContext) *Queries { return &Queries{x: x} }

// DB owns the pool.  Its embedded Queries run outside any transaction.
type DB struct {
	*Queries
	db *sqlx.DB
}

// New wraps an open pool.
func New(db *sqlx.DB) *DB {
	return &DB{Queries: NewQueries(db), db: db}
}

// InTx runs fn inside one transaction.
func (d *DB) InTx(ctx context.Context, fn func(Tx) error) error {
	return database.WithTx(ctx, d.db, func(tx *sqlx.Tx) error {
		return fn(NewQueries(tx))
	})
}

// Ping checks the pool.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

/*──────────────────────────── helpers ─────────────────────────────────────*/

func (q *Queries) get(ctx context.Context, dest any, what string, id any, query string, args ...any) error {
	if err := sqlx.GetContext(ctx, q.x, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "%s %v not found", what, id)
		}
		return fmt.Errorf("load %s %v: %w", what, id, err)
	}
	return nil
}

// execOne runs a DELETE that must touch exactly one row, returning NotFound
// when it touched none.  UPDATEs do not use it: MySQL reports zero affected
// rows when the new values equal the old ones.
func (q *Queries) execOne(ctx context.Context, what string, id int64, query string, args ...any) error {
	res, err := q.x.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", what, id, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "%s %d not found", what, id)
	}
	return nil
}

func (q *Queries) exec(ctx context.Context, what string, query string, args ...any) (int64, error) {
	res, err := q.x.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}

func selectContext(ctx context.Context, q *Queries, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.x, dest, query, args...)
}
