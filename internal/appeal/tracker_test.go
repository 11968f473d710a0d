package appeal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/store"
	"github.com/yanizio/sitewarden/internal/store/storetest"
)

func newTracker() (*Tracker, *storetest.Memory) {
	mem := storetest.NewMemory()
	mem.AddAccount(store.Account{ID: 2})
	mem.AddAccount(store.Account{ID: 3})
	mem.AddSite(store.Site{ID: 10, OwnerID: 2, Status: store.SiteSuspended})
	return New(mem, zap.NewNop().Sugar()), mem
}

func TestOpenAppeal(t *testing.T) {
	tr, mem := newTracker()

	ap, err := tr.OpenAppeal(context.Background(), 10, 2, " T-100 ")
	require.NoError(t, err)
	require.NotZero(t, ap.ID)
	require.Equal(t, store.AppealPending, ap.Status)
	require.Equal(t, "T-100", ap.TicketID)

	got, ok := mem.Appeal(10)
	require.True(t, ok)
	require.Equal(t, ap.ID, got.ID)
}

func TestOpenAppealRejections(t *testing.T) {
	tr, _ := newTracker()
	ctx := context.Background()

	_, err := tr.OpenAppeal(ctx, 10, 2, "  ")
	require.ErrorIs(t, err, apperr.InvalidArgument)

	_, err = tr.OpenAppeal(ctx, 404, 2, "T-1")
	require.ErrorIs(t, err, apperr.NotFound)

	_, err = tr.OpenAppeal(ctx, 10, 3, "T-1")
	require.ErrorIs(t, err, apperr.Forbidden)
}

func TestOpenAppealOncePerSite(t *testing.T) {
	tr, mem := newTracker()
	ctx := context.Background()

	_, err := tr.OpenAppeal(ctx, 10, 2, "T-1")
	require.NoError(t, err)
	_, err = tr.OpenAppeal(ctx, 10, 2, "T-2")
	require.ErrorIs(t, err, apperr.Conflict)

	// A resolved appeal still blocks a new one.
	mem.AddAppeal(store.Appeal{SiteID: 10, AccountID: 2, TicketID: "T-1", Status: store.AppealRejected})
	_, err = tr.OpenAppeal(ctx, 10, 2, "T-3")
	require.ErrorIs(t, err, apperr.Conflict)
}

func TestOpenAppealInsertFailure(t *testing.T) {
	tr, mem := newTracker()
	mem.Fail = func(op string) error {
		if op == "insert_appeal" {
			return errors.New("server has gone away")
		}
		return nil
	}

	_, err := tr.OpenAppeal(context.Background(), 10, 2, "T-1")
	require.Error(t, err)
	require.Equal(t, apperr.Internal, apperr.KindOf(err))
	_, ok := mem.Appeal(10)
	require.False(t, ok)
}
