package store

import (
	"context"
	"fmt"
)

const reportColumns = `id, site_id, reporter_id, reporter_address, reason, description,
       status, created_at, updated_at`

// InsertReport files a new report with status new.
func (q *Queries) InsertReport(ctx context.Context, r Report) (int64, error) {
	res, err := q.x.ExecContext(ctx,
		`INSERT INTO report (site_id, reporter_id, reporter_address, reason, description, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.SiteID, r.ReporterID, r.ReporterAddress, r.Reason, r.Description, ReportNew)
	if err != nil {
		return 0, fmt.Errorf("insert report site=%d: %w", r.SiteID, err)
	}
	return res.LastInsertId()
}

// ReportByID fetches one report.
func (q *Queries) ReportByID(ctx context.Context, id int64) (Report, error) {
	var r Report
	err := q.get(ctx, &r, "report", id,
		`SELECT `+reportColumns+` FROM report WHERE id = ?`, id)
	return r, err
}

// LockReport fetches one report under a row lock.
func (q *Queries) LockReport(ctx context.Context, id int64) (Report, error) {
	var r Report
	err := q.get(ctx, &r, "report", id,
		`SELECT `+reportColumns+` FROM report WHERE id = ? FOR UPDATE`, id)
	return r, err
}

// ListReports returns reports newest first.  An empty status lists all.
func (q *Queries) ListReports(ctx context.Context, status string) ([]Report, error) {
	var (
		out []Report
		err error
	)
	if status == "" {
		err = selectContext(ctx, q, &out,
			`SELECT `+reportColumns+` FROM report ORDER BY created_at DESC, id DESC`)
	} else {
		err = selectContext(ctx, q, &out,
			`SELECT `+reportColumns+` FROM report WHERE status = ? ORDER BY created_at DESC, id DESC`, status)
	}
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

// UpdateReportStatus sets a report's status.
func (q *Queries) UpdateReportStatus(ctx context.Context, id int64, status string) error {
	_, err := q.exec(ctx, fmt.Sprintf("update report %d", id),
		`UPDATE report SET status = ? WHERE id = ?`, status, id)
	return err
}
