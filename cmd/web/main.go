// cmd/web/main.go
//
// sitewarden – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Load conf/moderation.yaml plus SITEWARDEN_* overrides and validate.
//
//  3. Start the daily rotating logger (tees to console in a TTY).
//
//  4. Resolve vault: references when the config holds any.
//
//  5. Open MySQL, apply embedded migrations when enabled.
//
//  6. Build the Asset Store driver (fs or s3) and the services.
//
//  7. Serve the chi router (requestinfo → auth → acl → handlers, plus
//     /metrics and /healthz) until SIGINT or SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/sitewarden/internal/admin"
	"github.com/yanizio/sitewarden/internal/appeal"
	"github.com/yanizio/sitewarden/internal/assets"
	"github.com/yanizio/sitewarden/internal/audit"
	"github.com/yanizio/sitewarden/internal/auth"
	"github.com/yanizio/sitewarden/internal/config"
	"github.com/yanizio/sitewarden/internal/database"
	"github.com/yanizio/sitewarden/internal/flags"
	"github.com/yanizio/sitewarden/internal/lifecycle"
	"github.com/yanizio/sitewarden/internal/logger"
	"github.com/yanizio/sitewarden/internal/purge"
	"github.com/yanizio/sitewarden/internal/report"
	"github.com/yanizio/sitewarden/internal/requestinfo"
	"github.com/yanizio/sitewarden/internal/server"
	"github.com/yanizio/sitewarden/internal/store"
	"github.com/yanizio/sitewarden/internal/strike"
	"github.com/yanizio/sitewarden/internal/vault"
)

const (
	serverEnvPath = "/usr/local/etc/sitewarden/global.env"
	shutdownGrace = 20 * time.Second
)

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logDir := cfg.Log.Dir
	if logDir == "" {
		logDir = "logs"
	}
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	lg, err := logger.New(logDir, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatalw("sitewarden stopped", "err", err)
	}
	lg.Info("sitewarden stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *zap.SugaredLogger) error {
	//
	// ── 1.  Secrets ──────────────────────────────────────────────────────
	//
	if cfg.HasSecretRefs() {
		vc, err := vault.New(ctx, lg)
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, vc); err != nil {
			return err
		}
		lg.Info("secrets resolved from vault")
	}

	//
	// ── 2.  Database ─────────────────────────────────────────────────────
	//
	opts := database.DefaultOptions()
	opts.MaxOpenConns = cfg.Database.MaxOpenConns
	opts.MaxIdleConns = cfg.Database.MaxIdleConns
	lg.Info("connecting to database …")
	db, err := database.OpenWithOptions(ctx, cfg.Database.ConnString(), opts)
	if err != nil {
		return err
	}
	defer db.Close()
	lg.Info("database online")

	if cfg.Database.Migrate {
		n, err := database.Migrate(ctx, db, lg)
		if err != nil {
			return err
		}
		lg.Infow("migrations applied", "count", n)
	}

	//
	// ── 3.  GeoIP (optional) ─────────────────────────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			lg.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 4.  Asset Store driver ───────────────────────────────────────────
	//
	assetStore, err := openAssets(ctx, cfg.Assets)
	if err != nil {
		return err
	}
	lg.Infow("asset store ready", "driver", cfg.Assets.Driver)

	//
	// ── 5.  Services ─────────────────────────────────────────────────────
	//
	st := store.New(db)
	releaser := assets.NewReleaser(assetStore, cfg.Assets.ReleaseTimeout, cfg.Assets.Parallelism, lg)
	recorder := audit.NewRecorder(st, lg)
	purger := purge.New(st, releaser, lg)
	ctl := lifecycle.New(st, strike.NewLedger(cfg.Moderation.StrikeThreshold), purger, releaser, recorder,
		lifecycle.Options{Grace: cfg.Moderation.SuspensionGrace}, lg)

	h := &admin.Handler{
		Lifecycle: ctl,
		Reports:   report.New(st, ctl, recorder, lg),
		Appeals:   appeal.New(st, lg),
		Purger:    purger,
		Flags:     flags.New(st, cfg.Flags.TTL, lg),
		Audit:     recorder,
		Health:    st,
		Log:       lg,
	}
	provider, err := auth.NewGatewayProvider(cfg.Identity.GatewaySecret, st)
	if err != nil {
		return err
	}

	//
	// ── 6.  Serve ────────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, admin.NewRouter(h, provider), server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})
	lg.Infow("listening", "addr", cfg.HTTP.ListenAddr)
	return server.Run(ctx, srv, shutdownGrace, lg)
}

func openAssets(ctx context.Context, c config.Assets) (assets.Store, error) {
	if c.Driver == "s3" {
		return assets.NewS3Store(ctx, assets.S3Options{
			Bucket:       c.Bucket,
			Region:       c.Region,
			Endpoint:     c.Endpoint,
			AccessKeyID:  c.AccessKeyID,
			SecretKey:    c.SecretKey,
			PublicPrefix: c.PublicPrefix,
		})
	}
	return assets.NewFSStore(c.Root, c.PublicPrefix)
}
