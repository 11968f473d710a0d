// Package strike is the strike ledger: at most one strike per
// (account, site) pair, counted per account against the purge threshold.
//
// The ledger never opens its own transaction.  Callers pass the store.Tx
// of the transition that issues the strike so the insert, the count, and
// the site mutation commit together.
package strike

import (
	"context"
	"fmt"

	"github.com/yanizio/sitewarden/internal/store"
)

// DefaultThreshold is the strike count that triggers an account purge.
const DefaultThreshold = 3

// Writer is the subset of store.Tx the ledger touches.
type Writer interface {
	InsertStrike(ctx context.Context, accountID, siteID int64, note string) (bool, error)
	CountStrikes(ctx context.Context, accountID int64) (int, error)
	DeleteStrikesForSite(ctx context.Context, siteID int64) (int64, error)
}

// Ledger applies the threshold policy.
type Ledger struct {
	threshold int
}

// NewLedger returns a ledger with the given threshold (DefaultThreshold
// when non-positive).
func NewLedger(threshold int) *Ledger {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Ledger{threshold: threshold}
}

// Threshold returns the configured purge threshold.
func (l *Ledger) Threshold() int { return l.threshold }

// RecordStrike charges accountID for siteID unless that pair already has a
// strike.  issued reports whether a new strike was written.
func (l *Ledger) RecordStrike(ctx context.Context, w Writer, accountID, siteID int64, note string) (issued bool, err error) {
	issued, err = w.InsertStrike(ctx, accountID, siteID, note)
	if err != nil {
		return false, fmt.Errorf("record strike: %w", err)
	}
	return issued, nil
}

// CountStrikes returns the account's strikes across all sites.
func (l *Ledger) CountStrikes(ctx context.Context, w Writer, accountID int64) (int, error) {
	n, err := w.CountStrikes(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("count strikes: %w", err)
	}
	return n, nil
}

// ClearStrikesForSite removes every strike referencing siteID.
func (l *Ledger) ClearStrikesForSite(ctx context.Context, w Writer, siteID int64) (int64, error) {
	n, err := w.DeleteStrikesForSite(ctx, siteID)
	if err != nil {
		return 0, fmt.Errorf("clear strikes: %w", err)
	}
	return n, nil
}

// Crossed reports whether count has reached the threshold.
func (l *Ledger) Crossed(count int) bool { return count >= l.threshold }

/*──────────────────────────── notes ───────────────────────────────────────*/

// SuspensionNote describes a strike issued by an admin suspension.
func SuspensionNote(s store.Site) string {
	return fmt.Sprintf("Site %q (/%s) suspended for a policy violation", s.Title, s.Path)
}

// RemovalNote describes a strike issued by a hard delete.
func RemovalNote(s store.Site) string {
	return fmt.Sprintf("Site %q (/%s) removed for a policy violation", s.Title, s.Path)
}

// ReportNote describes a strike issued by banning a report.
func ReportNote(s store.Site, r store.Report) string {
	return fmt.Sprintf("Site %q (/%s) suspended after report #%d (reason: %s)", s.Title, s.Path, r.ID, r.Reason)
}
