package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/truthengine/backend-go/internal/config"
	"github.com/truthengine/backend-go/internal/di"
	apperrors "github.com/truthengine/backend-go/internal/errors"
	"github.com/truthengine/backend-go/internal/logger"
)

// App encapsulates configuration, logging and the lazily built dependency
// graph shared by every entry point.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	container *dig.Container
	lifecycle *di.Lifecycle
}

// Init loads .env and configuration, builds the logger and registers providers.
// No external connection is opened here; providers connect on first use.
func Init(ctx context.Context) (*App, error) {
	// .env is optional.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to read .env: %v", err)
	}

	cfg, err := config.NewLoader().Load()
	if err != nil {
		return nil, apperrors.NewConfigError(err)
	}

	zl, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return nil, apperrors.NewConfigError(err)
	}

	lc := di.NewLifecycle()
	container, err := di.NewContainer(ctx, cfg, zl, lc)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    zl,
		container: container,
		lifecycle: lc,
	}, nil
}

// Invoke resolves dependencies and runs fn. Provider failures are unwrapped
// to the original AppError so callers can map them to exit codes.
func (a *App) Invoke(fn interface{}) error {
	if err := a.container.Invoke(fn); err != nil {
		return dig.RootCause(err)
	}
	return nil
}

// Shutdown closes resources in reverse order and flushes the logger.
func (a *App) Shutdown() {
	if err := a.lifecycle.Shutdown(); err != nil {
		a.Logger.Warn("Cleanup error", zap.Error(err))
	}
	logger.Sync(a.Logger)
}
