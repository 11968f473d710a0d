// Package storetest provides an in-memory, transactional stand-in for the
// MySQL store.  It enforces the same unique keys and cascades as the
// schema so service tests can exercise moderation flows without a server.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/store"
)

type strikeKey struct{ account, site int64 }

type state struct {
	accounts map[int64]store.Account
	sites    map[int64]store.Site
	strikes  map[strikeKey]store.Strike
	appeals  map[int64]store.Appeal // keyed by site id
	reports  map[int64]store.Report
	settings map[string]string
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		accounts: make(map[int64]store.Account, len(s.accounts)),
		sites:    make(map[int64]store.Site, len(s.sites)),
		strikes:  make(map[strikeKey]store.Strike, len(s.strikes)),
		appeals:  make(map[int64]store.Appeal, len(s.appeals)),
		reports:  make(map[int64]store.Report, len(s.reports)),
		settings: make(map[string]string, len(s.settings)),
		nextID:   s.nextID,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.sites {
		c.sites[k] = v
	}
	for k, v := range s.strikes {
		c.strikes[k] = v
	}
	for k, v := range s.appeals {
		c.appeals[k] = v
	}
	for k, v := range s.reports {
		c.reports[k] = v
	}
	for k, v := range s.settings {
		c.settings[k] = v
	}
	return c
}

// Memory is safe for concurrent use.  Transactions are serialised.
type Memory struct {
	mu    sync.Mutex
	st    *state
	audit []store.AdminAction

	// Fail, when set, is consulted before every operation; a non-nil
	// return aborts that operation with the error.
	Fail func(op string) error
	// Commits counts successful InTx calls.
	Commits int
}

// NewMemory returns an empty store.  IDs start at 1000 so seeded rows with
// small ids never collide.
func NewMemory() *Memory {
	return &Memory{st: (&state{nextID: 1000}).clone()}
}

/*──────────────────────────── seeding ─────────────────────────────────────*/

// AddAccount inserts an account, defaulting role and status.
func (m *Memory) AddAccount(a store.Account) store.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Role == "" {
		a.Role = store.RoleUser
	}
	if a.Status == "" {
		a.Status = "active"
	}
	m.st.accounts[a.ID] = a
	return a
}

// AddSite inserts a site, defaulting status to published.
func (m *Memory) AddSite(s store.Site) store.Site {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Status == "" {
		s.Status = store.SitePublished
	}
	if s.Path == "" {
		s.Path = fmt.Sprintf("site-%d", s.ID)
	}
	m.st.sites[s.ID] = s
	return s
}

// AddStrike inserts a strike directly.
func (m *Memory) AddStrike(accountID, siteID int64, note string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.nextID++
	m.st.strikes[strikeKey{accountID, siteID}] = store.Strike{
		ID: m.st.nextID, AccountID: accountID, SiteID: siteID, Note: note,
	}
}

// AddAppeal inserts an appeal directly.
func (m *Memory) AddAppeal(a store.Appeal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Status == "" {
		a.Status = store.AppealPending
	}
	m.st.appeals[a.SiteID] = a
}

// AddReport inserts a report directly.
func (m *Memory) AddReport(r store.Report) store.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Status == "" {
		r.Status = store.ReportNew
	}
	m.st.reports[r.ID] = r
	return r
}

/*──────────────────────────── inspection ──────────────────────────────────*/

// Site returns the committed site row.
func (m *Memory) Site(id int64) (store.Site, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.sites[id]
	return s, ok
}

// Account returns the committed account row.
func (m *Memory) Account(id int64) (store.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.st.accounts[id]
	return a, ok
}

// Report returns the committed report row.
func (m *Memory) Report(id int64) (store.Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.st.reports[id]
	return r, ok
}

// Appeal returns the committed appeal for a site.
func (m *Memory) Appeal(siteID int64) (store.Appeal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.st.appeals[siteID]
	return a, ok
}

// Strikes lists committed strikes for an account ordered by site.
func (m *Memory) Strikes(accountID int64) []store.Strike {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Strike
	for k, v := range m.st.strikes {
		if k.account == accountID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out
}

// StrikesForSite counts committed strikes referencing a site.
func (m *Memory) StrikesForSite(siteID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.st.strikes {
		if k.site == siteID {
			n++
		}
	}
	return n
}

// Audit returns the appended audit rows.
func (m *Memory) Audit() []store.AdminAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.AdminAction(nil), m.audit...)
}

/*──────────────────────────── transactions ────────────────────────────────*/

// InTx runs fn against a private copy of the state and publishes it only
// when fn returns nil.
func (m *Memory) InTx(ctx context.Context, fn func(store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("begin"); err != nil {
		return err
	}
	tx := &memTx{m: m, st: m.st.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := m.fail("commit"); err != nil {
		return err
	}
	m.st = tx.st
	m.Commits++
	return nil
}

func (m *Memory) fail(op string) error {
	if m.Fail == nil {
		return nil
	}
	return m.Fail(op)
}

// view runs a read outside any transaction.
func (m *Memory) view(fn func(*memTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&memTx{m: m, st: m.st})
}

/*──────────────────────────── non-tx surface ──────────────────────────────*/

// ListReports mirrors store.Queries.ListReports.
func (m *Memory) ListReports(ctx context.Context, status string) ([]store.Report, error) {
	var out []store.Report
	err := m.view(func(t *memTx) error {
		var err error
		out, err = t.ListReports(ctx, status)
		return err
	})
	return out, err
}

// AccountRole mirrors store.Queries.AccountRole.
func (m *Memory) AccountRole(_ context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.st.accounts[id]
	if !ok || a.Status != "active" {
		return "", apperr.New(apperr.NotFound, "account %d not found", id)
	}
	return a.Role, nil
}

// AppendAdminAction mirrors store.Queries.AppendAdminAction.
func (m *Memory) AppendAdminAction(_ context.Context, a store.AdminAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("append_admin_action"); err != nil {
		return err
	}
	m.st.nextID++
	a.ID = m.st.nextID
	m.audit = append(m.audit, a)
	return nil
}

// Setting mirrors store.Queries.Setting.
func (m *Memory) Setting(_ context.Context, name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("setting"); err != nil {
		return "", false, err
	}
	v, ok := m.st.settings[name]
	return v, ok, nil
}

// PutSetting mirrors store.Queries.PutSetting.
func (m *Memory) PutSetting(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("put_setting"); err != nil {
		return err
	}
	m.st.settings[name] = value
	return nil
}

/*──────────────────────────── store.Tx ────────────────────────────────────*/

type memTx struct {
	m  *Memory
	st *state
}

var _ store.Tx = (*memTx)(nil)

func (t *memTx) AccountByID(_ context.Context, id int64) (store.Account, error) {
	if err := t.m.fail("account_by_id"); err != nil {
		return store.Account{}, err
	}
	a, ok := t.st.accounts[id]
	if !ok {
		return store.Account{}, apperr.New(apperr.NotFound, "account %d not found", id)
	}
	return a, nil
}

func (t *memTx) DeleteAccount(_ context.Context, id int64) error {
	if err := t.m.fail("delete_account"); err != nil {
		return err
	}
	if _, ok := t.st.accounts[id]; !ok {
		return apperr.New(apperr.NotFound, "account %d not found", id)
	}
	delete(t.st.accounts, id)
	for sid, s := range t.st.sites {
		if s.OwnerID == id {
			delete(t.st.sites, sid)
		}
	}
	for k := range t.st.strikes {
		if k.account == id {
			delete(t.st.strikes, k)
		}
	}
	for sid, a := range t.st.appeals {
		if a.AccountID == id {
			delete(t.st.appeals, sid)
		}
	}
	return nil
}

func (t *memTx) SiteByID(_ context.Context, id int64) (store.Site, error) {
	if err := t.m.fail("site_by_id"); err != nil {
		return store.Site{}, err
	}
	s, ok := t.st.sites[id]
	if !ok {
		return store.Site{}, apperr.New(apperr.NotFound, "site %d not found", id)
	}
	return s, nil
}

func (t *memTx) LockSite(ctx context.Context, id int64) (store.Site, error) {
	return t.SiteByID(ctx, id)
}

func (t *memTx) SiteByPath(_ context.Context, path string) (store.Site, error) {
	for _, s := range t.st.sites {
		if s.Path == path {
			return s, nil
		}
	}
	return store.Site{}, apperr.New(apperr.NotFound, "site %s not found", path)
}

func (t *memTx) SitesByOwner(_ context.Context, ownerID int64) ([]store.Site, error) {
	var out []store.Site
	for _, s := range t.st.sites {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) UpdateSiteStatus(_ context.Context, id int64, status string, deadline *time.Time) error {
	if err := t.m.fail("update_site_status"); err != nil {
		return err
	}
	s, ok := t.st.sites[id]
	if !ok {
		return nil
	}
	s.Status = status
	if deadline != nil {
		d := *deadline
		s.DeletionScheduledFor = &d
	} else {
		s.DeletionScheduledFor = nil
	}
	t.st.sites[id] = s
	return nil
}

func (t *memTx) DeleteSite(_ context.Context, id int64) error {
	if err := t.m.fail("delete_site"); err != nil {
		return err
	}
	if _, ok := t.st.sites[id]; !ok {
		return apperr.New(apperr.NotFound, "site %d not found", id)
	}
	delete(t.st.sites, id)
	return nil
}

func (t *memTx) OverdueSuspensions(_ context.Context, now time.Time) ([]store.Site, error) {
	var out []store.Site
	for _, s := range t.st.sites {
		if s.Status == store.SiteSuspended && s.DeletionScheduledFor != nil && !s.DeletionScheduledFor.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DeletionScheduledFor.Before(*out[j].DeletionScheduledFor)
	})
	return out, nil
}

func (t *memTx) InsertStrike(_ context.Context, accountID, siteID int64, note string) (bool, error) {
	if err := t.m.fail("insert_strike"); err != nil {
		return false, err
	}
	k := strikeKey{accountID, siteID}
	if _, ok := t.st.strikes[k]; ok {
		return false, nil
	}
	t.st.nextID++
	t.st.strikes[k] = store.Strike{ID: t.st.nextID, AccountID: accountID, SiteID: siteID, Note: note}
	return true, nil
}

func (t *memTx) CountStrikes(_ context.Context, accountID int64) (int, error) {
	n := 0
	for k := range t.st.strikes {
		if k.account == accountID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteStrikesForSite(_ context.Context, siteID int64) (int64, error) {
	var n int64
	for k := range t.st.strikes {
		if k.site == siteID {
			delete(t.st.strikes, k)
			n++
		}
	}
	return n, nil
}

func (t *memTx) AppealBySite(_ context.Context, siteID int64) (store.Appeal, error) {
	a, ok := t.st.appeals[siteID]
	if !ok {
		return store.Appeal{}, apperr.New(apperr.NotFound, "appeal for site %d not found", siteID)
	}
	return a, nil
}

func (t *memTx) InsertAppeal(_ context.Context, a store.Appeal) (int64, error) {
	if err := t.m.fail("insert_appeal"); err != nil {
		return 0, err
	}
	if _, ok := t.st.appeals[a.SiteID]; ok {
		return 0, apperr.New(apperr.Conflict, "site %d already has an appeal", a.SiteID)
	}
	t.st.nextID++
	a.ID = t.st.nextID
	a.Status = store.AppealPending
	t.st.appeals[a.SiteID] = a
	return a.ID, nil
}

func (t *memTx) ResolvePendingAppeal(_ context.Context, siteID int64, status string, at time.Time) (bool, error) {
	a, ok := t.st.appeals[siteID]
	if !ok || a.Status != store.AppealPending {
		return false, nil
	}
	a.Status = status
	ts := at
	a.ResolvedAt = &ts
	t.st.appeals[siteID] = a
	return true, nil
}

func (t *memTx) InsertReport(_ context.Context, r store.Report) (int64, error) {
	if err := t.m.fail("insert_report"); err != nil {
		return 0, err
	}
	t.st.nextID++
	r.ID = t.st.nextID
	r.Status = store.ReportNew
	t.st.reports[r.ID] = r
	return r.ID, nil
}

func (t *memTx) ReportByID(_ context.Context, id int64) (store.Report, error) {
	r, ok := t.st.reports[id]
	if !ok {
		return store.Report{}, apperr.New(apperr.NotFound, "report %d not found", id)
	}
	return r, nil
}

func (t *memTx) LockReport(ctx context.Context, id int64) (store.Report, error) {
	return t.ReportByID(ctx, id)
}

func (t *memTx) ListReports(_ context.Context, status string) ([]store.Report, error) {
	var out []store.Report
	for _, r := range t.st.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) UpdateReportStatus(_ context.Context, id int64, status string) error {
	if err := t.m.fail("update_report_status"); err != nil {
		return err
	}
	r, ok := t.st.reports[id]
	if !ok {
		return nil
	}
	r.Status = status
	t.st.reports[id] = r
	return nil
}
