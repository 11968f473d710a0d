// internal/store/store_test.go
//
// Unit tests for the SQL helpers using sqlmock.

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/sitewarden/internal/apperr"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "mysql")), mock
}

func siteRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "title", "path", "logo_path", "cover_path", "status",
		"deletion_scheduled_for", "created_at", "updated_at",
	})
}

func TestSiteByID(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + siteColumns + ` FROM site WHERE id = ?`)).
		WithArgs(int64(9)).
		WillReturnRows(siteRows().AddRow(9, 4, "Bakery", "bakery", "/uploads/logo.png",
			"/static/default/cover.jpg", "suspended", now, now, now))

	s, err := db.SiteByID(context.Background(), 9)
	if err != nil {
		t.Fatalf("SiteByID: %v", err)
	}
	if s.OwnerID != 4 || s.Status != SiteSuspended {
		t.Fatalf("unexpected site %+v", s)
	}
	if s.DeletionScheduledFor == nil || !s.DeletionScheduledFor.Equal(now) {
		t.Fatalf("deadline not scanned: %v", s.DeletionScheduledFor)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSiteByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + siteColumns + ` FROM site WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnRows(siteRows())

	_, err := db.SiteByID(context.Background(), 1)
	if !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestLockSiteUsesForUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM site WHERE id = ? FOR UPDATE`)).
		WithArgs(int64(2)).
		WillReturnRows(siteRows().AddRow(2, 1, "t", "p", "", "", "published", nil, time.Now(), time.Now()))
	mock.ExpectCommit()

	err := db.InTx(context.Background(), func(tx Tx) error {
		_, err := tx.LockSite(context.Background(), 2)
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestUpdateSiteStatusClearsDeadline(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE site SET status = ?, deletion_scheduled_for = ? WHERE id = ?`)).
		WithArgs("published", nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.UpdateSiteStatus(context.Background(), 5, SitePublished, nil); err != nil {
		t.Fatalf("UpdateSiteStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestDeleteSiteMissing(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM site WHERE id = ?`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := db.DeleteSite(context.Background(), 5); !errors.Is(err, apperr.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestInsertStrikeIdempotent(t *testing.T) {
	db, mock := newMockDB(t)
	q := regexp.QuoteMeta(`INSERT INTO strike (account_id, site_id, note) VALUES (?, ?, ?)`)

	mock.ExpectExec(q).WithArgs(int64(4), int64(9), "note").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q).WithArgs(int64(4), int64(9), "note").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '4-9' for key 'uq_strike_account_site'"})

	first, err := db.InsertStrike(context.Background(), 4, 9, "note")
	if err != nil || !first {
		t.Fatalf("first insert: inserted=%v err=%v", first, err)
	}
	second, err := db.InsertStrike(context.Background(), 4, 9, "note")
	if err != nil || second {
		t.Fatalf("duplicate insert: inserted=%v err=%v", second, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestInsertStrikeIgnoresFoundRows(t *testing.T) {
	db, mock := newMockDB(t)

	// With clientFoundRows a matched row reports one affected row; the
	// insert result must not be read from that count.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO strike`)).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO strike`)).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})

	inserted, err := db.InsertStrike(context.Background(), 4, 9, "note")
	if err != nil || inserted {
		t.Fatalf("duplicate: inserted=%v err=%v", inserted, err)
	}
	if _, err := db.InsertStrike(context.Background(), 4, 99, "note"); err == nil {
		t.Fatalf("FK violation swallowed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestCountStrikes(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM strike WHERE account_id = ?`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := db.CountStrikes(context.Background(), 4)
	if err != nil || n != 3 {
		t.Fatalf("CountStrikes = %d, %v", n, err)
	}
}

func TestInsertAppealConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO appeal`)).
		WithArgs(int64(9), int64(4), "T-1", AppealPending).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9' for key 'uq_appeal_site'"})

	_, err := db.InsertAppeal(context.Background(), Appeal{SiteID: 9, AccountID: 4, TicketID: "T-1"})
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestResolvePendingAppeal(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE appeal SET status = ?, resolved_at = ? WHERE site_id = ? AND status = ?`)).
		WithArgs(AppealApproved, at, int64(9), AppealPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := db.ResolvePendingAppeal(context.Background(), 9, AppealApproved, at)
	if err != nil || !ok {
		t.Fatalf("ResolvePendingAppeal = %v, %v", ok, err)
	}
}

func TestListReportsFiltered(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM report WHERE status = ? ORDER BY created_at DESC, id DESC`)).
		WithArgs(ReportNew).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "site_id", "reporter_id", "reporter_address", "reason", "description",
			"status", "created_at", "updated_at",
		}).
			AddRow(2, 9, nil, "203.0.113.7", "scam", "fake shop", "new", now, now).
			AddRow(1, 9, 7, "198.51.100.2", "spam", "", "new", now, now))

	got, err := db.ListReports(context.Background(), ReportNew)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(got) != 2 || got[0].ReporterID != nil || got[1].ReporterID == nil || *got[1].ReporterID != 7 {
		t.Fatalf("unexpected reports %+v", got)
	}
}

func TestSettingAbsent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM platform_setting WHERE name = ?`)).
		WithArgs("maintenance_mode").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := db.Setting(context.Background(), "maintenance_mode")
	if err != nil || ok {
		t.Fatalf("Setting = ok:%v err:%v", ok, err)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE site SET status = ?`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO strike`)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := db.InTx(context.Background(), func(tx Tx) error {
		if err := tx.UpdateSiteStatus(context.Background(), 1, SiteSuspended, nil); err != nil {
			return err
		}
		_, err := tx.InsertStrike(context.Background(), 1, 1, "n")
		return err
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestAppendAdminAction(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO admin_action_log`)).
		WithArgs("evt-1", int64(1), "site_suspend", "site", int64(9), []byte(`{"k":1}`), "203.0.113.7").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := db.AppendAdminAction(context.Background(), AdminAction{
		EventID: "evt-1", ActorID: 1, Action: "site_suspend", TargetType: "site",
		TargetID: 9, Detail: []byte(`{"k":1}`), CallerAddress: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("AppendAdminAction: %v", err)
	}
}
