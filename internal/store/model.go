// internal/store/model.go
//
// Row types for the moderation schema.  Field tags match the column names
// in internal/database/migrations.

package store

import "time"

// Site statuses.
const (
	SiteDraft     = "draft"
	SitePublished = "published"
	SiteSuspended = "suspended"
	SiteProbation = "probation"
)

// Report statuses.
const (
	ReportNew       = "new"
	ReportDismissed = "dismissed"
	ReportBanned    = "banned"
)

// Appeal statuses.
const (
	AppealPending  = "pending"
	AppealApproved = "approved"
	AppealRejected = "rejected"
)

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ReportReasons is the closed reason vocabulary, in display order.
var ReportReasons = []string{"spam", "scam", "inappropriate_content", "copyright", "other"}

// ValidReportStatus reports whether s is a known report status.
func ValidReportStatus(s string) bool {
	switch s {
	case ReportNew, ReportDismissed, ReportBanned:
		return true
	}
	return false
}

// Account is a platform user.
type Account struct {
	ID         int64     `db:"id"          json:"id"`
	Username   string    `db:"username"    json:"username"`
	Role       string    `db:"role"        json:"role"`
	Status     string    `db:"status"      json:"status"`
	AvatarPath string    `db:"avatar_path" json:"avatar_path"`
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
}

// Site is a user-published site.  DeletionScheduledFor is only
// meaningful while Status is suspended.
type Site struct {
	ID                   int64      `db:"id"                     json:"id"`
	OwnerID              int64      `db:"owner_id"               json:"owner_id"`
	Title                string     `db:"title"                  json:"title"`
	Path                 string     `db:"path"                   json:"path"`
	LogoPath             string     `db:"logo_path"              json:"logo_path"`
	CoverPath            string     `db:"cover_path"             json:"cover_path"`
	Status               string     `db:"status"                 json:"status"`
	DeletionScheduledFor *time.Time `db:"deletion_scheduled_for" json:"deletion_scheduled_for,omitempty"`
	CreatedAt            time.Time  `db:"created_at"             json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"             json:"updated_at"`
}

// Strike is one violation charged to an account for a site.
type Strike struct {
	ID        int64     `db:"id"         json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	SiteID    int64     `db:"site_id"    json:"site_id"`
	Note      string    `db:"note"       json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Report is a third-party complaint about a site.
type Report struct {
	ID              int64     `db:"id"               json:"id"`
	SiteID          int64     `db:"site_id"          json:"site_id"`
	ReporterID      *int64    `db:"reporter_id"      json:"reporter_id,omitempty"`
	ReporterAddress string    `db:"reporter_address" json:"reporter_address"`
	Reason          string    `db:"reason"           json:"reason"`
	Description     string    `db:"description"      json:"description"`
	Status          string    `db:"status"           json:"status"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}

// Appeal links a support ticket to a request to lift a suspension.
type Appeal struct {
	ID         int64      `db:"id"          json:"id"`
	SiteID     int64      `db:"site_id"     json:"site_id"`
	AccountID  int64      `db:"account_id"  json:"account_id"`
	TicketID   string     `db:"ticket_id"   json:"ticket_id"`
	Status     string     `db:"status"      json:"status"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// AdminAction is one append-only audit row.  Detail holds JSON.
type AdminAction struct {
	ID            int64     `db:"id"`
	EventID       string    `db:"event_id"`
	ActorID       int64     `db:"actor_id"`
	Action        string    `db:"action"`
	TargetType    string    `db:"target_type"`
	TargetID      int64     `db:"target_id"`
	Detail        []byte    `db:"detail"`
	CallerAddress string    `db:"caller_address"`
	CreatedAt     time.Time `db:"created_at"`
}
