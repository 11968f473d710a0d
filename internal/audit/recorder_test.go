package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/requestinfo"
	"github.com/yanizio/sitewarden/internal/store"
)

type sliceSink struct {
	rows []store.AdminAction
	err  error
}

func (s *sliceSink) AppendAdminAction(_ context.Context, a store.AdminAction) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, a)
	return nil
}

func newRecorder(sink Sink) (*Recorder, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return NewRecorder(sink, zap.New(core).Sugar()), logs
}

func adminCtx() context.Context {
	ctx := auth.WithCaller(context.Background(), auth.Caller{AccountID: 1, Role: "admin"})
	return requestinfo.WithInfo(ctx, &requestinfo.RequestInfo{
		Geo: requestinfo.Geo{IP: net.ParseIP("203.0.113.7")},
	})
}

func TestRecordWritesEntry(t *testing.T) {
	sink := &sliceSink{}
	rec, _ := newRecorder(sink)

	rec.Record(adminCtx(), SiteSuspend, TargetSite, 9, map[string]any{"strike_issued": true})

	require.Len(t, sink.rows, 1)
	row := sink.rows[0]
	require.Equal(t, int64(1), row.ActorID)
	require.Equal(t, SiteSuspend, row.Action)
	require.Equal(t, TargetSite, row.TargetType)
	require.Equal(t, int64(9), row.TargetID)
	require.Equal(t, "203.0.113.7", row.CallerAddress)
	require.Len(t, row.EventID, 36)

	var detail map[string]any
	require.NoError(t, json.Unmarshal(row.Detail, &detail))
	require.Equal(t, true, detail["strike_issued"])
	require.Contains(t, detail, "client")
}

func TestRecordDropsAnonymous(t *testing.T) {
	sink := &sliceSink{}
	rec, logs := newRecorder(sink)

	rec.Record(context.Background(), SiteRestore, TargetSite, 9, nil)

	require.Empty(t, sink.rows)
	warn := logs.FilterMessage("audit entry dropped: unauthenticated caller")
	require.Equal(t, 1, warn.Len())
	require.Equal(t, zapcore.WarnLevel, warn.All()[0].Level)
}

func TestRecordSwallowsSinkFailure(t *testing.T) {
	sink := &sliceSink{err: errors.New("table locked")}
	rec, logs := newRecorder(sink)

	require.NotPanics(t, func() {
		rec.Record(adminCtx(), SiteDelete, TargetSite, 9, nil)
	})
	require.Equal(t, 1, logs.FilterMessage("audit write failed").Len())
}

func TestRecordWithoutRequestInfo(t *testing.T) {
	sink := &sliceSink{}
	rec, _ := newRecorder(sink)

	ctx := auth.WithCaller(context.Background(), auth.Caller{AccountID: 3, Role: "admin"})
	rec.Record(ctx, UserDelete, TargetUser, 4, map[string]any{"reason": "strike_threshold"})

	require.Len(t, sink.rows, 1)
	require.Equal(t, "", sink.rows[0].CallerAddress)
}
