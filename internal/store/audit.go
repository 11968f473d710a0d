package store

import (
	"context"
	"fmt"
)

// AppendAdminAction writes one audit row.  Rows are never updated.
func (q *Queries) AppendAdminAction(ctx context.Context, a AdminAction) error {
	_, err := q.x.ExecContext(ctx,
		`INSERT INTO admin_action_log
		   (event_id, actor_id, action, target_type, target_id, detail, caller_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.EventID, a.ActorID, a.Action, a.TargetType, a.TargetID, a.Detail, a.CallerAddress)
	if err != nil {
		return fmt.Errorf("append admin action %s: %w", a.Action, err)
	}
	return nil
}

// AdminActionsFor lists the audit trail for one target, oldest first.
func (q *Queries) AdminActionsFor(ctx context.Context, targetType string, targetID int64) ([]AdminAction, error) {
	var out []AdminAction
	if err := selectContext(ctx, q, &out,
		`SELECT id, event_id, actor_id, action, target_type, target_id, detail, caller_address, created_at
		 FROM admin_action_log WHERE target_type = ? AND target_id = ? ORDER BY id`,
		targetType, targetID); err != nil {
		return nil, fmt.Errorf("admin actions %s/%d: %w", targetType, targetID, err)
	}
	return out, nil
}
