// Package app wires the sync core together: store, reconcile engine,
// event intake, retry syncer and the ops HTTP surface.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"

	"chatsync/pkg/call"
	"chatsync/pkg/config"
	"chatsync/pkg/engine"
	"chatsync/pkg/logger"
	"chatsync/pkg/remote"
	"chatsync/pkg/store"
	"chatsync/pkg/syncer"
)

// App encapsulates the sync-core components and lifecycle.
type App struct {
	cfg     *config.Config
	dbPath  string
	addr    string
	version string

	store  *store.Store
	engine *engine.Engine
	intake *engine.Intake
	syncer *syncer.Syncer
	scope  *call.Scope

	srv *http.Server
}

// New opens the store and builds the component graph. It does not start
// the intake loop, sweep scheduler or HTTP server; call Run for those.
func New(cfg *config.Config, addr, dbPath, version string) (*App, error) {
	_ = godotenv.Load(".env")

	userID := cfg.Session.UserID
	if userID == "" {
		return nil, fmt.Errorf("session.user_id is required")
	}
	if cfg.Remote.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is required")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dbPath, err)
	}

	eng := engine.New(st, userID)
	intake := engine.NewIntake(eng, cfg.Intake.Capacity, cfg.Intake.BatchSize)

	client := remote.NewHTTPClient(cfg.Remote.BaseURL)
	sy := syncer.New(st, client, userID, eng.Online, cfg.Sync.RPS, cfg.Sync.Burst)
	eng.AddConnectivityListener(&syncer.ConnectivityHook{Syncer: sy})

	a := &App{
		cfg:     cfg,
		dbPath:  dbPath,
		addr:    addr,
		version: version,
		store:   st,
		engine:  eng,
		intake:  intake,
		syncer:  sy,
	}
	return a, nil
}

// Run starts the intake loop, the sweep scheduler and the ops HTTP
// server, and blocks until ctx is canceled or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.scope = call.NewScope(runCtx, a.cfg.Sync.Workers)

	go a.intake.Run(runCtx)

	if err := a.startSweeper(runCtx); err != nil {
		return err
	}

	logger.Info("chatsync_started",
		"addr", a.addr, "db", a.dbPath, "user", a.cfg.Session.UserID, "version", a.version)

	errCh := a.startHTTP()

	select {
	case <-runCtx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		a.shutdown()
		return err
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.srv.Shutdown(sctx)
		scancel()
	}
	a.intake.Close()
	if a.scope != nil {
		a.scope.Close()
	}
	if err := a.store.Close(); err != nil {
		logger.Error("store_close", "error", err)
	}
}

// startSweeper validates the cron expression and launches the retry
// sweep scheduler.
func (a *App) startSweeper(ctx context.Context) error {
	cronExpr := a.cfg.Sync.Cron
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweep_invalid_cron", "cron", a.cfg.Sync.Cron)
		return fmt.Errorf("invalid sweep cron expression: %s", a.cfg.Sync.Cron)
	}
	logger.Info("sweep_scheduler_started", "cron", cronExpr)
	go a.runSweepScheduler(ctx, cronExpr)
	return nil
}

// runSweepScheduler computes the next cron tick with gronx and sleeps
// until it, repeating until cancellation.
func (a *App) runSweepScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := a.syncer.Sweep(ctx); err != nil {
				logger.Error("sweep_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		}
	}
}
