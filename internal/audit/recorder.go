// Package audit writes the append-only admin action trail.
//
// Recording is best-effort by contract: the moderation action it describes
// has already committed, so an unauthenticated caller or a failed write is
// logged and swallowed rather than returned.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/metrics"
	"github.com/yanizio/sitewarden/internal/requestinfo"
	"github.com/yanizio/sitewarden/internal/store"
)

// Action vocabulary.
const (
	SiteSuspend   = "site_suspend"
	SiteProbation = "site_probation"
	SiteRestore   = "site_restore"
	SiteDelete    = "site_delete"
	ReportBan     = "report_ban"
	ReportDismiss = "report_dismiss"
	ReportReopen  = "report_reopen"
	UserDelete    = "user_delete"
	FlagUpdate    = "flag_update"
)

// Target types.
const (
	TargetSite   = "site"
	TargetReport = "report"
	TargetUser   = "user"
	TargetFlag   = "flag"
)

// writeTimeout bounds a single audit insert.
const writeTimeout = 3 * time.Second

// Sink appends one audit row.
type Sink interface {
	AppendAdminAction(ctx context.Context, a store.AdminAction) error
}

// Recorder builds audit rows from the request context.
type Recorder struct {
	sink  Sink
	log   *zap.SugaredLogger
	newID func() string
}

// NewRecorder writes to sink.
func NewRecorder(sink Sink, log *zap.SugaredLogger) *Recorder {
	return &Recorder{sink: sink, log: log, newID: func() string { return uuid.NewString() }}
}

// Record appends one entry attributed to the caller in ctx.  detail is
// encoded as JSON together with the caller's client fingerprint.
func (r *Recorder) Record(ctx context.Context, action, targetType string, targetID int64, detail map[string]any) {
	caller, ok := auth.FromContext(ctx)
	if !ok {
		r.log.Warnw("audit entry dropped: unauthenticated caller",
			"action", action, "target_type", targetType, "target_id", targetID)
		return
	}

	payload := make(map[string]any, len(detail)+1)
	for k, v := range detail {
		payload[k] = v
	}
	ri := requestinfo.FromContext(ctx)
	if ri != nil {
		payload["client"] = ri
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		r.log.Errorw("audit detail encode failed", "action", action, "err", err)
		raw = []byte("{}")
	}

	entry := store.AdminAction{
		EventID:       r.newID(),
		ActorID:       caller.AccountID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      targetID,
		Detail:        raw,
		CallerAddress: ri.Addr(),
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := r.sink.AppendAdminAction(wctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		r.log.Errorw("audit write failed",
			"event_id", entry.EventID, "action", action,
			"target_type", targetType, "target_id", targetID, "err", err)
		return
	}
	r.log.Infow("admin action",
		"event_id", entry.EventID, "actor_id", caller.AccountID,
		"action", action, "target_type", targetType, "target_id", targetID)
}
