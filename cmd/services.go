package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xvierd/kage-cli/internal/adapters/api"
	"github.com/xvierd/kage-cli/internal/adapters/notification"
	"github.com/xvierd/kage-cli/internal/adapters/storage"
	"github.com/xvierd/kage-cli/internal/adapters/tui"
	"github.com/xvierd/kage-cli/internal/config"
	"github.com/xvierd/kage-cli/internal/ports"
	"github.com/xvierd/kage-cli/internal/services"
)

// appDeps groups all service-layer dependencies initialized at startup.
type appDeps struct {
	config     *config.Config
	configPath string
	logger     *zap.Logger
	storage    ports.CacheStore
	api        *api.Client
	notifier   *notification.Notifier
	toasts     *tui.ToastBuffer
	timeline   *services.TimelineService
	todos      *services.TodoService
	sync       *services.SyncService
	state      *services.StateService
}

// app holds all initialized service dependencies.
// Populated by initializeServices() and accessible to all commands.
var app appDeps

// initializeServices sets up all the required services and adapters.
func initializeServices(cmd *cobra.Command) error {
	_ = cleanupServices()
	app = appDeps{}

	// Load configuration: --config flag > ~/.kage/config.toml
	var err error
	app.configPath = configPath
	if app.configPath == "" {
		app.configPath, err = config.GetConfigPath()
		if err != nil {
			return err
		}
	}
	app.config, err = config.LoadFrom(app.configPath)
	if err != nil {
		// If config loading fails, use defaults
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
		app.config = config.DefaultConfig()
	}
	if baseURL != "" {
		app.config.API.BaseURL = baseURL
	}
	if logLevel != "" {
		app.config.Log.Level = logLevel
	}

	app.logger = newLogger(cmd.ErrOrStderr(), app.config.LogLevel())

	// Initialize notifier; the toast buffer lets the TUI pick messages up
	app.notifier = notification.New(&app.config.Notifications, cmd.ErrOrStderr())
	app.toasts = tui.NewToastBuffer(app.notifier)

	// Determine database path
	path := dbPath
	if path == "" {
		path = config.GetDBPath(app.config)
	}

	// Ensure directory exists
	if err := os.MkdirAll(getDir(path), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	// Initialize storage
	app.storage, err = storage.New(path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.api = api.NewClient(app.config.API.BaseURL, time.Duration(app.config.API.Timeout), app.logger)
	app.logger.Debug("services initialized", zap.String("db", path), zap.String("base_url", app.api.BaseURL()))

	// Initialize services
	opts := services.Options{
		TTL:          time.Duration(app.config.Cache.TTL),
		EventTypeTTL: time.Duration(app.config.Cache.EventTypesTTL),
		ServerFilter: app.config.Todos.ServerFilter,
		Logger:       app.logger,
		Notifier:     app.toasts,
	}
	app.timeline = services.NewTimelineService(app.api, app.storage, opts)
	app.todos = services.NewTodoService(app.api, app.storage, opts)
	app.sync = services.NewSyncService(app.api, app.storage, opts)

	// Wire up services for state service
	app.state = services.NewStateService()
	app.state.SetTimelineService(app.timeline)
	app.state.SetTodoService(app.todos)

	return nil
}

// newLogger builds a development-style console logger writing to w.
func newLogger(w io.Writer, level zapcore.Level) *zap.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, zap.AddCaller())
}

// cleanupServices closes all resources.
func cleanupServices() error {
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	if app.storage != nil {
		err := app.storage.Close()
		app.storage = nil
		return err
	}
	return nil
}

// setupSignalHandler sets up a context that cancels on interrupt signals.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	return ctx
}

// withTUI silences terminal toasts while a full-screen view owns the screen.
func withTUI(cmd *cobra.Command, run func(ctx context.Context) error) error {
	ctx := setupSignalHandler()
	app.notifier.SetOutput(nil)
	defer app.notifier.SetOutput(cmd.ErrOrStderr())
	return run(ctx)
}
