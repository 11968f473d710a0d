// Package flags caches platform-wide boolean switches stored in the
// platform_setting table.
//
// Reads hit a sync.Map; a miss or an expired entry goes to the database
// through a singleflight barrier so concurrent requests share one query.
// Set writes through and drops the cached value.  A failed load reports
// the flag as off.
package flags

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/sitewarden/internal/apperr"
	"github.com/yanizio/sitewarden/internal/metrics"
)

// Known flags.
const (
	MaintenanceMode = "maintenance_mode"
	EditorLock      = "editor_lock"
)

// DefaultTTL bounds how stale a cached flag may be.
const DefaultTTL = 30 * time.Second

// loadTimeout bounds one shared database read.
const loadTimeout = 2 * time.Second

var known = map[string]bool{MaintenanceMode: true, EditorLock: true}

// Known reports whether name is a recognised flag.
func Known(name string) bool { return known[name] }

// Source reads and writes raw setting values.
type Source interface {
	Setting(ctx context.Context, name string) (value string, ok bool, err error)
	PutSetting(ctx context.Context, name, value string) error
}

type entry struct {
	on      bool
	expires time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	src     Source
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	log     *zap.SugaredLogger

	sfg singleflight.Group
	m   sync.Map // name -> entry
}

// New returns a Cache.  A non-positive ttl selects DefaultTTL.
func New(src Source, ttl time.Duration, log *zap.SugaredLogger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{src: src, ttl: ttl, timeout: loadTimeout, now: time.Now, log: log}
}

// Enabled reports the flag's current value.
func (c *Cache) Enabled(ctx context.Context, name string) bool {
	if v, ok := c.m.Load(name); ok {
		if ent := v.(entry); c.now().Before(ent.expires) {
			return ent.on
		}
	}

	v, _, _ := c.sfg.Do(name, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(name); ok {
			if ent := v.(entry); c.now().Before(ent.expires) {
				return ent.on, nil
			}
		}
		// Detached from the first caller, but bounded: every waiter on the
		// barrier shares this read.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		raw, ok, err := c.src.Setting(lctx, name)
		if err != nil {
			c.log.Warnw("flag load failed; treating as off", "flag", name, "err", err)
			return false, nil
		}
		metrics.FlagCacheLoads.Inc()
		on := ok && parseBool(raw)
		c.m.Store(name, entry{on: on, expires: c.now().Add(c.ttl)})
		return on, nil
	})
	return v.(bool)
}

// Set persists the flag and invalidates the cached copy.
func (c *Cache) Set(ctx context.Context, name string, on bool) error {
	if !Known(name) {
		return apperr.New(apperr.NotFound, "unknown flag %q", name)
	}
	if err := c.src.PutSetting(ctx, name, strconv.FormatBool(on)); err != nil {
		return fmt.Errorf("set flag %s: %w", name, err)
	}
	c.Invalidate(name)
	c.log.Infow("flag updated", "flag", name, "on", on)
	return nil
}

// Invalidate drops the cached value so the next read reloads it.
func (c *Cache) Invalidate(name string) {
	c.m.Delete(name)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
