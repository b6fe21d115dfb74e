// Package server initializes and runs the CloudVault server: it opens
// the database, applies migrations, and wires the services together.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dmitrijs2005/cloudvault/internal/logging"
	"github.com/dmitrijs2005/cloudvault/internal/server/config"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cloudvault/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	Permissions *services.PermissionService
	Lifecycle   *services.LifecycleService
	Sharing     *services.SharingService
	Folders     *services.FolderService
	Files       *services.FileService
	Dashboard   *services.DashboardService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := logging.NewZerologLogger(zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger())

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	blobs := services.NewS3BlobStore(cfg)
	notifier := services.NewLogNotifier(logger)

	permissions := services.NewPermissionService(db, rm)

	return &App{
		config:      cfg,
		logger:      logger,
		db:          db,
		Permissions: permissions,
		Lifecycle:   services.NewLifecycleService(db, rm, permissions, blobs, logger),
		Sharing:     services.NewSharingService(db, rm, permissions, notifier, cfg, logger),
		Folders:     services.NewFolderService(db, rm, permissions),
		Files:       services.NewFileService(db, rm, permissions, blobs),
		Dashboard:   services.NewDashboardService(db, rm),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the context is cancelled or a termination signal
// arrives, then closes the database.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	<-ctx.Done()

	app.logger.Info(context.Background(), "Shutting down...")

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
}
