package strike

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanizio/sitewarden/internal/store"
	"github.com/yanizio/sitewarden/internal/store/storetest"
)

func TestRecordStrikeOncePerPair(t *testing.T) {
	mem := storetest.NewMemory()
	mem.AddAccount(store.Account{ID: 1})
	l := NewLedger(0)
	require.Equal(t, DefaultThreshold, l.Threshold())

	ctx := context.Background()
	var issued []bool
	err := mem.InTx(ctx, func(tx store.Tx) error {
		for i := 0; i < 3; i++ {
			ok, err := l.RecordStrike(ctx, tx, 1, 10, "n")
			if err != nil {
				return err
			}
			issued = append(issued, ok)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, false}, issued)
	require.Len(t, mem.Strikes(1), 1)
}

func TestCountAndClear(t *testing.T) {
	mem := storetest.NewMemory()
	mem.AddStrike(1, 10, "a")
	mem.AddStrike(1, 11, "b")
	mem.AddStrike(2, 10, "c")
	l := NewLedger(3)

	ctx := context.Background()
	err := mem.InTx(ctx, func(tx store.Tx) error {
		n, err := l.CountStrikes(ctx, tx, 1)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.False(t, l.Crossed(n))

		cleared, err := l.ClearStrikesForSite(ctx, tx, 10)
		require.NoError(t, err)
		require.Equal(t, int64(2), cleared)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, mem.StrikesForSite(10))
	require.Len(t, mem.Strikes(1), 1)
	require.True(t, l.Crossed(3))
}

func TestReportNoteMentionsReportAndReason(t *testing.T) {
	note := ReportNote(store.Site{Title: "Shop", Path: "shop"}, store.Report{ID: 42, Reason: "scam"})
	require.True(t, strings.Contains(note, "#42"), note)
	require.True(t, strings.Contains(note, "scam"), note)
}
