// Package server initializes and runs the evidence server.
// It opens the database, applies migrations, wires the object storage
// gateway and services, starts the HTTP server and the optional orphan
// sweep, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/complyvault/evidenced/internal/logging"
	"github.com/complyvault/evidenced/internal/server/config"
	"github.com/complyvault/evidenced/internal/server/httpapi"
	"github.com/complyvault/evidenced/internal/server/repositories/repomanager"
	"github.com/complyvault/evidenced/internal/server/services"
	"github.com/complyvault/evidenced/internal/server/storage"
)

type App struct {
	config          *config.Config
	logger          logging.Logger
	db              *sql.DB
	evidenceService *services.EvidenceService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	gateway := storage.NewS3Gateway(cfg)
	es := services.NewEvidenceService(db, repos, gateway, cfg, logger)

	return &App{config: cfg, logger: logger, db: db, evidenceService: es}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.logger, app.evidenceService, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// startSweep periodically finalizes or flags stale credential_issued
// records. Disabled when SweepInterval is zero.
func (app *App) startSweep(ctx context.Context) {
	ticker := time.NewTicker(app.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := app.evidenceService.SweepOrphans(ctx, app.config.SweepOlderThan)
			if err != nil {
				app.logger.Error(ctx, "sweep failed", "error", err.Error())
				continue
			}
			app.logger.Info(ctx, "sweep finished",
				"scanned", report.Scanned,
				"finalized", report.Finalized,
				"orphaned", report.Orphaned,
				"failed", report.Failed,
			)
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startSweep(ctx)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err.Error())
	}
}
