package assets

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/sitewarden/internal/metrics"
)

// Summary reports what ReleaseAll did with each path.
type Summary struct {
	Released []string `json:"released,omitempty"`
	Missing  []string `json:"missing,omitempty"`
	Skipped  []string `json:"skipped,omitempty"`
	Failed   []string `json:"failed,omitempty"`
}

// Releaser fans releases out to a Store with bounded parallelism and a
// per-call timeout.  Failures are logged and counted, never returned.
type Releaser struct {
	store       Store
	timeout     time.Duration
	parallelism int
	log         *zap.SugaredLogger
}

// NewReleaser wraps s.  Non-positive timeout or parallelism fall back to
// 5s and 4.
func NewReleaser(s Store, timeout time.Duration, parallelism int, log *zap.SugaredLogger) *Releaser {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Releaser{store: s, timeout: timeout, parallelism: parallelism, log: log}
}

// ReleaseAll attempts every path and returns once all attempts finished.
// Default sentinels are skipped and duplicates collapse.  Cancelling ctx
// does not abort releases already owed; each call is bounded by the
// releaser timeout instead.
func (r *Releaser) ReleaseAll(ctx context.Context, paths []string) Summary {
	var (
		sum  Summary
		mu   sync.Mutex
		seen = make(map[string]bool, len(paths))
	)
	base := context.WithoutCancel(ctx)

	g := new(errgroup.Group)
	g.SetLimit(r.parallelism)
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if IsDefault(p) {
			sum.Skipped = append(sum.Skipped, p)
			continue
		}
		p := p
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(base, r.timeout)
			defer cancel()
			err := r.store.Release(cctx, p)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sum.Released = append(sum.Released, p)
			case errors.Is(err, ErrNotFound):
				sum.Missing = append(sum.Missing, p)
			default:
				sum.Failed = append(sum.Failed, p)
				metrics.AssetReleaseFailures.Inc()
				r.log.Warnw("asset release failed", "path", p, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(sum.Released)
	sort.Strings(sum.Missing)
	sort.Strings(sum.Failed)
	return sum
}
