// Package database centralises sqlx connection helpers for the moderation
// store.  The driver is go-sql-driver/mysql, which also works with MariaDB.
//
// Public entry points:
//
//	Open(dsn)                         – conservative pool sizes.
//	OpenWithOptions(ctx, dsn, opts)   – fine-grained control plus retries.
//	WithTx(ctx, db, fn)               – run fn inside one transaction.
//	Migrate(ctx, db, log)             – apply embedded schema files.
//
// Every helper Pings before returning so callers can fail fast during
// bootstrap.  Callers should Close() the returned *sqlx.DB when done.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Options tunes the pool and the boot-time ping loop.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int
	RetryBackoff    time.Duration
}

// DefaultOptions returns 15 max open, 5 idle, a 30-minute lifetime, and
// three ping attempts two seconds apart.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         3,
		RetryBackoff:    2 * time.Second,
	}
}

// Open returns a *sqlx.DB using DefaultOptions.
func Open(dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(context.Background(), dsn, DefaultOptions())
}

// OpenWithOptions opens the pool and pings it, retrying up to
// opts.Retries times.  The DSN must request parseTime=true so DATETIME
// columns scan into time.Time.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := pingWithRetry(ctx, db, opts.Retries, opts.RetryBackoff); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sqlx.DB, retries int, backoff time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == retries {
			break
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("ping after %d attempt(s): %w", retries, err)
}

// IsDuplicateKey reports whether err is a MySQL unique-constraint violation.
func IsDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
