package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/avetra/backoffice/internal/attachment"
	"github.com/avetra/backoffice/internal/audit"
	"github.com/avetra/backoffice/internal/backup"
	config "github.com/avetra/backoffice/internal/config/server"
	"github.com/avetra/backoffice/internal/settings"
	"github.com/avetra/backoffice/pkg/db/migrations"
	"github.com/avetra/backoffice/pkg/db/store"
	"github.com/avetra/backoffice/pkg/log"
)

// BackofficeAgent is the long-running server process: it owns the store,
// the audit recorder and the backup scheduler, and shuts them down in order
// on interrupt.
type BackofficeAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg *config.BaseServerConfig
	sc  *container.ServiceContainer
	log log.LoggerService
}

func NewAgent(cfg *config.BaseServerConfig) *BackofficeAgent {
	return &BackofficeAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("backoffice", cfg.Log),
	}
}

func (ba *BackofficeAgent) setupServices() error {
	errs := container.Errors{}

	ba.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](ba.sc,
		container.With[log.LoggerService](),
		container.WithInstance(ba.log)))

	return errs.Errors()
}

func (ba *BackofficeAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	ba.mutex.Lock()

	if err := ba.setupServices(); err != nil {
		ba.mutex.Unlock()
		return err
	}

	st, err := ba.openStore(ctx)
	if err != nil {
		ba.mutex.Unlock()
		return err
	}
	defer st.Close()

	recorder := ba.newRecorder(st)
	cfgStore := settings.NewStore(st, recorder, ba.log.Named("settings"))

	resolver, err := attachment.NewResolver(ba.cfg.Files.Root)
	if err != nil {
		ba.mutex.Unlock()
		return err
	}
	ba.log.Info("Attachment storage rooted at %s", resolver.Root())

	scheduler, err := ba.newScheduler(st, recorder, cfgStore)
	if err != nil {
		ba.mutex.Unlock()
		return err
	}

	ba.wait.Add(1)
	go func() {
		defer ba.wait.Done()
		scheduler.Start(ctx)
	}()

	ba.mutex.Unlock()
	<-ctx.Done()

	timeout, err := time.ParseDuration(ba.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ba.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	ba.wait.Wait()
	return nil
}

func (ba *BackofficeAgent) openStore(ctx context.Context) (*store.SQLiteStore, error) {
	path := ba.cfg.Metadata.SQLite.Path
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{Path: path})
	if err != nil {
		return nil, err
	}
	if err := st.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.NewMigrator(st.DB()).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	ba.log.Info("Database ready at %s", path)
	return st, nil
}

func (ba *BackofficeAgent) newRecorder(st store.Store) *audit.Recorder {
	if ba.cfg.Audit.File == "" {
		return audit.NewRecorder(st)
	}

	mirror := &lumberjack.Logger{
		Filename:   ba.cfg.Audit.File,
		MaxSize:    ba.cfg.Audit.Rotation.MaxSize,
		MaxBackups: ba.cfg.Audit.Rotation.MaxBackups,
		MaxAge:     ba.cfg.Audit.Rotation.MaxAge,
		Compress:   ba.cfg.Audit.Rotation.Compress,
	}
	return audit.NewRecorder(st, audit.WithMirror(mirror))
}

func (ba *BackofficeAgent) newScheduler(st *store.SQLiteStore, recorder *audit.Recorder, cfgStore *settings.Store) (*backup.Scheduler, error) {
	interval, err := time.ParseDuration(ba.cfg.Backup.TickInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid backup tick interval %q: %w", ba.cfg.Backup.TickInterval, err)
	}

	runner := backup.NewArchiveRunner(st.Path(), ba.cfg.Files.Root, ba.cfg.Backup.Directory)

	return backup.NewScheduler(cfgStore, recorder, runner, ba.log.Named("backup"),
		backup.WithInterval(interval)), nil
}
