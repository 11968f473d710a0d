package store

import (
	"context"
	"errors"

	"github.com/yanizio/sitewarden/internal/apperr"
)

// Setting reads a platform setting.  ok is false when the row is absent.
func (q *Queries) Setting(ctx context.Context, name string) (value string, ok bool, err error) {
	err = q.get(ctx, &value, "setting", name,
		`SELECT value FROM platform_setting WHERE name = ?`, name)
	if errors.Is(err, apperr.NotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutSetting upserts a platform setting.
func (q *Queries) PutSetting(ctx context.Context, name, value string) error {
	_, err := q.exec(ctx, "put setting "+name,
		`INSERT INTO platform_setting (name, value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE value = VALUES(value)`, name, value)
	return err
}
