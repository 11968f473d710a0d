package lifecycle

import (
	"fmt"
	"time"

	"github.com/yanizio/sitewarden/internal/assets"
	"github.com/yanizio/sitewarden/internal/purge"
)

// Signal tells the caller how the transition ended.
type Signal string

const (
	SignalOK             Signal = "OK"
	SignalAccountDeleted Signal = "ACCOUNT_DELETED"
)

// StatusDeleted is reported for a site whose row was removed.
const StatusDeleted = "deleted"

// action labels used in metrics and error messages
const (
	actSuspend   = "suspend"
	actProbation = "probation"
	actRestore   = "restore"
	actDelete    = "delete"
	actBan       = "ban"
)

// Outcome describes a committed transition.
type Outcome struct {
	Signal               Signal          `json:"signal"`
	Message              string          `json:"message"`
	SiteID               int64           `json:"site_id"`
	AccountID            int64           `json:"account_id"`
	ReportID             int64           `json:"report_id,omitempty"`
	Status               string          `json:"status"`
	DeletionScheduledFor *time.Time      `json:"deletion_scheduled_for,omitempty"`
	StrikeIssued         bool            `json:"strike_issued"`
	StrikeCount          int             `json:"strike_count"`
	StrikeThreshold      int             `json:"strike_threshold"`
	StrikesCleared       int64           `json:"strikes_cleared,omitempty"`
	AppealResolved       string          `json:"appeal_resolved,omitempty"`
	Assets               *assets.Summary `json:"assets,omitempty"`
	Purge                *purge.Result   `json:"purge,omitempty"`

	title  string
	path   string
	reason string
}

// AccountDeleted reports whether the owner was purged.
func (o Outcome) AccountDeleted() bool { return o.Signal == SignalAccountDeleted }

// detail is the audit payload for the transition itself.
func (o Outcome) detail() map[string]any {
	d := map[string]any{
		"site_id":       o.SiteID,
		"owner_id":      o.AccountID,
		"status":        o.Status,
		"strike_issued": o.StrikeIssued,
		"strike_count":  o.StrikeCount,
	}
	if o.title != "" {
		d["title"] = o.title
	}
	if o.path != "" {
		d["path"] = o.path
	}
	if o.reason != "" {
		d["reason"] = o.reason
	}
	if o.DeletionScheduledFor != nil {
		d["deletion_scheduled_for"] = o.DeletionScheduledFor.Format(time.RFC3339)
	}
	if o.AppealResolved != "" {
		d["appeal_resolved"] = o.AppealResolved
	}
	if o.StrikesCleared > 0 {
		d["strikes_cleared"] = o.StrikesCleared
	}
	if o.Assets != nil {
		d["assets_released"] = len(o.Assets.Released)
		d["assets_failed"] = len(o.Assets.Failed)
	}
	return d
}

func okMessage(action string, o Outcome) string {
	switch action {
	case actSuspend, actBan:
		msg := fmt.Sprintf("Site %d suspended. Deletion scheduled for %s.",
			o.SiteID, o.DeletionScheduledFor.Format("2006-01-02 15:04 MST"))
		if action == actBan {
			msg = fmt.Sprintf("Report %d banned. %s", o.ReportID, msg)
		}
		return msg + strikeSuffix(o)
	case actProbation:
		return fmt.Sprintf("Site %d is on probation.", o.SiteID)
	case actRestore:
		msg := fmt.Sprintf("Site %d restored.", o.SiteID)
		if o.AppealResolved != "" {
			msg += " Pending appeal approved."
		}
		if o.StrikesCleared > 0 {
			msg += fmt.Sprintf(" %d strike(s) cleared.", o.StrikesCleared)
		}
		return msg
	case actDelete:
		return fmt.Sprintf("Site %d deleted.", o.SiteID) + strikeSuffix(o)
	}
	return "Done."
}

func strikeSuffix(o Outcome) string {
	if !o.StrikeIssued {
		return fmt.Sprintf(" No new strike; owner has %d of %d.", o.StrikeCount, o.StrikeThreshold)
	}
	return fmt.Sprintf(" Strike issued; owner has %d of %d.", o.StrikeCount, o.StrikeThreshold)
}

func deletedMessage(action string, o Outcome) string {
	verb := "suspended"
	if action == actDelete {
		verb = "deleted"
	}
	return fmt.Sprintf("Site %d %s. Owner reached %d strikes; account %d and all of its sites were deleted.",
		o.SiteID, verb, o.StrikeCount, o.AccountID)
}
