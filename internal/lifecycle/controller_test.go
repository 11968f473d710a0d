package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/assets"
	"github.com/yanizio/sitewarden/internal/audit"
	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/purge"
	"github.com/yanizio/sitewarden/internal/store"
	"github.com/yanizio/sitewarden/internal/store/storetest"
	"github.com/yanizio/sitewarden/internal/strike"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeReleaser struct{ batches [][]string }

func (r *fakeReleaser) ReleaseAll(_ context.Context, paths []string) assets.Summary {
	r.batches = append(r.batches, paths)
	return assets.Summary{Released: paths}
}

type failingPurger struct{ calls int }

func (p *failingPurger) Purge(context.Context, int64) (purge.Result, error) {
	p.calls++
	return purge.Result{}, errors.New("connection reset")
}

type fixture struct {
	mem   *storetest.Memory
	rel   *fakeReleaser
	clock time.Time
	c     *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{mem: storetest.NewMemory(), rel: &fakeReleaser{}, clock: t0}
	log := zap.NewNop().Sugar()
	f.c = New(
		f.mem,
		strike.NewLedger(3),
		purge.New(f.mem, f.rel, log),
		f.rel,
		audit.NewRecorder(f.mem, log),
		Options{Now: func() time.Time { return f.clock }},
		log,
	)
	f.mem.AddAccount(store.Account{ID: 1, Role: store.RoleAdmin})
	f.mem.AddAccount(store.Account{ID: 2, AvatarPath: "/uploads/avatars/2.png"})
	return f
}

func adminCtx() context.Context {
	return auth.WithCaller(context.Background(), auth.Caller{AccountID: 1, Role: store.RoleAdmin})
}

func actions(mem *storetest.Memory) []string {
	var out []string
	for _, a := range mem.Audit() {
		out = append(out, a.Action)
	}
	return out
}

func TestSuspendSchedulesDeletionAndIssuesStrike(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2, Title: "Shop"})

	out, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)
	require.Equal(t, SignalOK, out.Signal)
	require.True(t, out.StrikeIssued)
	require.Equal(t, 1, out.StrikeCount)
	require.Equal(t, 3, out.StrikeThreshold)

	site, ok := f.mem.Site(10)
	require.True(t, ok)
	require.Equal(t, store.SiteSuspended, site.Status)
	require.NotNil(t, site.DeletionScheduledFor)
	require.True(t, site.DeletionScheduledFor.Equal(t0.Add(7*24*time.Hour)))

	strikes := f.mem.Strikes(2)
	require.Len(t, strikes, 1)
	require.Contains(t, strikes[0].Note, "Shop")
	require.Equal(t, []string{audit.SiteSuspend}, actions(f.mem))
}

func TestSuspendTwiceKeepsOneStrikeAndRefreshesDeadline(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})

	_, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)

	f.clock = t0.Add(48 * time.Hour)
	out, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)
	require.False(t, out.StrikeIssued)
	require.Equal(t, 1, out.StrikeCount)
	require.Contains(t, out.Message, "No new strike")

	require.Len(t, f.mem.Strikes(2), 1)
	site, _ := f.mem.Site(10)
	require.True(t, site.DeletionScheduledFor.Equal(f.clock.Add(7*24*time.Hour)))
}

func TestThirdStrikePurgesAccount(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2, LogoPath: "/uploads/logos/10.png"})
	f.mem.AddSite(store.Site{ID: 11, OwnerID: 2})
	f.mem.AddSite(store.Site{ID: 12, OwnerID: 2})
	f.mem.AddStrike(2, 10, "earlier")
	f.mem.AddStrike(2, 11, "earlier")

	out, err := f.c.Suspend(adminCtx(), 12)
	require.NoError(t, err)
	require.Equal(t, SignalAccountDeleted, out.Signal)
	require.True(t, out.AccountDeleted())
	require.Equal(t, 3, out.StrikeCount)
	require.NotNil(t, out.Purge)
	require.ElementsMatch(t, []int64{10, 11, 12}, out.Purge.SiteIDs)

	_, ok := f.mem.Account(2)
	require.False(t, ok)
	for _, id := range []int64{10, 11, 12} {
		_, ok := f.mem.Site(id)
		require.False(t, ok)
	}
	require.Empty(t, f.mem.Strikes(2))
	require.Equal(t, []string{audit.SiteSuspend, audit.UserDelete}, actions(f.mem))
	require.Contains(t, f.rel.batches[0], "/uploads/avatars/2.png")
	require.Contains(t, f.rel.batches[0], "/uploads/logos/10.png")
}

func TestPurgeFailureKeepsSuspension(t *testing.T) {
	f := newFixture(t)
	p := &failingPurger{}
	f.c.purger = p
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.AddStrike(2, 20, "a")
	f.mem.AddStrike(2, 21, "b")

	out, err := f.c.Suspend(adminCtx(), 10)
	require.Error(t, err)
	require.Equal(t, 1, p.calls)
	require.Equal(t, SignalOK, out.Signal)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SiteSuspended, site.Status)
	require.Len(t, f.mem.Strikes(2), 3)
}

func TestBanFromReport(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2, Title: "Deals"})
	rep := f.mem.AddReport(store.Report{ID: 77, SiteID: 10, Reason: "scam"})

	out, err := f.c.BanFromReport(adminCtx(), rep.ID)
	require.NoError(t, err)
	require.Equal(t, int64(77), out.ReportID)
	require.Equal(t, SignalOK, out.Signal)

	got, _ := f.mem.Report(77)
	require.Equal(t, store.ReportBanned, got.Status)
	site, _ := f.mem.Site(10)
	require.Equal(t, store.SiteSuspended, site.Status)

	strikes := f.mem.Strikes(2)
	require.Len(t, strikes, 1)
	require.Contains(t, strikes[0].Note, "#77")
	require.Contains(t, strikes[0].Note, "scam")
	require.Equal(t, []string{audit.ReportBan}, actions(f.mem))
}

func TestBanDismissedReportRejected(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.AddReport(store.Report{ID: 5, SiteID: 10, Reason: "spam", Status: store.ReportDismissed})

	_, err := f.c.BanFromReport(adminCtx(), 5)
	require.ErrorIs(t, err, apperr.InvalidArgument)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SitePublished, site.Status)
	require.Empty(t, f.mem.Strikes(2))
}

func TestBanReportForDeletedSite(t *testing.T) {
	f := newFixture(t)
	f.mem.AddReport(store.Report{ID: 5, SiteID: 404, Reason: "spam"})

	_, err := f.c.BanFromReport(adminCtx(), 5)
	require.ErrorIs(t, err, apperr.NotFound)
	rep, _ := f.mem.Report(5)
	require.Equal(t, store.ReportNew, rep.Status)
}

func TestRestoreApprovesAppealAndClearsStrikes(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.AddSite(store.Site{ID: 11, OwnerID: 2})
	_, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)
	f.mem.AddStrike(2, 11, "other site")
	f.mem.AddAppeal(store.Appeal{ID: 3, SiteID: 10, AccountID: 2, TicketID: "T-9"})

	f.clock = t0.Add(time.Hour)
	out, err := f.c.Restore(adminCtx(), 10)
	require.NoError(t, err)
	require.Equal(t, store.AppealApproved, out.AppealResolved)
	require.Equal(t, int64(1), out.StrikesCleared)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SitePublished, site.Status)
	require.Nil(t, site.DeletionScheduledFor)

	ap, _ := f.mem.Appeal(10)
	require.Equal(t, store.AppealApproved, ap.Status)
	require.NotNil(t, ap.ResolvedAt)
	require.True(t, ap.ResolvedAt.Equal(f.clock))

	require.Zero(t, f.mem.StrikesForSite(10))
	require.Len(t, f.mem.Strikes(2), 1, "strikes for other sites stay")
}

func TestRestoreLeavesResolvedAppeal(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2, Status: store.SiteSuspended})
	f.mem.AddAppeal(store.Appeal{SiteID: 10, AccountID: 2, TicketID: "T", Status: store.AppealRejected})

	out, err := f.c.Restore(adminCtx(), 10)
	require.NoError(t, err)
	require.Empty(t, out.AppealResolved)
	ap, _ := f.mem.Appeal(10)
	require.Equal(t, store.AppealRejected, ap.Status)
}

func TestRestoreRejectsDraft(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2, Status: store.SiteDraft})

	_, err := f.c.Restore(adminCtx(), 10)
	require.ErrorIs(t, err, apperr.InvalidArgument)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SiteDraft, site.Status)
	require.Empty(t, f.mem.Audit())
}

func TestProbation(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})

	_, err := f.c.SetProbation(adminCtx(), 10)
	require.ErrorIs(t, err, apperr.InvalidArgument)

	_, err = f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)
	out, err := f.c.SetProbation(adminCtx(), 10)
	require.NoError(t, err)
	require.Equal(t, store.SiteProbation, out.Status)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SiteProbation, site.Status)
	require.Nil(t, site.DeletionScheduledFor)
	require.Len(t, f.mem.Strikes(2), 1, "probation keeps the strike")
}

func TestHardDelete(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{
		ID: 10, OwnerID: 2,
		LogoPath:  "/uploads/logos/10.png",
		CoverPath: "/static/default/cover.jpg",
	})
	f.mem.AddAppeal(store.Appeal{SiteID: 10, AccountID: 2, TicketID: "T-1"})

	out, err := f.c.HardDelete(adminCtx(), 10)
	require.NoError(t, err)
	require.Equal(t, StatusDeleted, out.Status)
	require.True(t, out.StrikeIssued)
	require.Equal(t, store.AppealRejected, out.AppealResolved)

	_, ok := f.mem.Site(10)
	require.False(t, ok)
	ap, ok := f.mem.Appeal(10)
	require.True(t, ok, "appeal outlives the site row")
	require.Equal(t, store.AppealRejected, ap.Status)
	require.Equal(t, 1, f.mem.StrikesForSite(10), "strike outlives the site row")

	require.Len(t, f.rel.batches, 1)
	require.Equal(t, []string{"/uploads/logos/10.png"}, f.rel.batches[0])
	require.Equal(t, []string{audit.SiteDelete}, actions(f.mem))
}

func TestHardDeleteAfterSuspendDoesNotDoubleCharge(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})

	_, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)
	out, err := f.c.HardDelete(adminCtx(), 10)
	require.NoError(t, err)
	require.False(t, out.StrikeIssued)
	require.Equal(t, 1, out.StrikeCount)
}

func TestHardDeleteCrossingThreshold(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.AddSite(store.Site{ID: 11, OwnerID: 2})
	f.mem.AddStrike(2, 30, "a")
	f.mem.AddStrike(2, 31, "b")

	out, err := f.c.HardDelete(adminCtx(), 10)
	require.NoError(t, err)
	require.Equal(t, SignalAccountDeleted, out.Signal)
	_, ok := f.mem.Account(2)
	require.False(t, ok)
	_, ok = f.mem.Site(11)
	require.False(t, ok)
}

func TestMissingSite(t *testing.T) {
	f := newFixture(t)
	for name, fn := range map[string]func(context.Context, int64) (Outcome, error){
		"suspend":   f.c.Suspend,
		"probation": f.c.SetProbation,
		"restore":   f.c.Restore,
		"delete":    f.c.HardDelete,
		"ban":       f.c.BanFromReport,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn(adminCtx(), 404)
			require.ErrorIs(t, err, apperr.NotFound)
		})
	}
	require.Empty(t, f.mem.Audit())
}

func TestTransitionIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.Fail = func(op string) error {
		if op == "insert_strike" {
			return errors.New("lock wait timeout")
		}
		return nil
	}

	_, err := f.c.Suspend(adminCtx(), 10)
	require.Error(t, err)

	site, _ := f.mem.Site(10)
	require.Equal(t, store.SitePublished, site.Status)
	require.Nil(t, site.DeletionScheduledFor)
	require.Empty(t, f.mem.Audit())
}

func TestOverdue(t *testing.T) {
	f := newFixture(t)
	f.mem.AddSite(store.Site{ID: 10, OwnerID: 2})
	f.mem.AddSite(store.Site{ID: 11, OwnerID: 2})
	_, err := f.c.Suspend(adminCtx(), 10)
	require.NoError(t, err)

	f.clock = t0.Add(8 * 24 * time.Hour)
	_, err = f.c.Suspend(adminCtx(), 11)
	require.NoError(t, err)

	due, err := f.c.Overdue(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, int64(10), due[0].ID)
}
