package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/wrapgrid/internal/client"
	"github.com/vk/wrapgrid/internal/config"
	"github.com/vk/wrapgrid/internal/ctxlog"
	"github.com/vk/wrapgrid/internal/plugin"
	"github.com/vk/wrapgrid/internal/wasm"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	client  *client.Client
	modules []plugin.Module
}

// NewApp is the constructor for the main application. Results are written to
// outW and logs to logW. When modules is empty the bundled plugins are used.
func NewApp(ctx context.Context, outW, logW io.Writer, appConfig *Config, loader config.Loader, modules ...plugin.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	model := config.NewModel()
	if len(appConfig.ConfigPaths) > 0 {
		loaded, err := loader.Load(ctx, appConfig.ConfigPaths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		model = loaded
	}

	redirects, err := model.BuildRedirects()
	if err != nil {
		return nil, fmt.Errorf("failed to build redirects: %w", err)
	}

	if len(modules) == 0 {
		modules = coreModules
	}
	plugins := plugin.NewRegistry().Load(modules...)
	logger.Debug("All plugins registered.", "count", plugins.Len())

	cfg := client.Config{
		Redirects:   redirects,
		Concurrency: model.Concurrency,
	}
	if appConfig.Concurrency > 0 {
		cfg.Concurrency = appConfig.Concurrency
	}

	root := model.ModulesRoot
	if appConfig.ModulesRoot != "" {
		root = appConfig.ModulesRoot
	}
	var fsLoader *wasm.FSLoader
	if root != "" {
		runtime, err := wasm.NewWazeroRuntime(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start wasm runtime: %w", err)
		}
		cfg.Runtime = runtime
		fsLoader = wasm.NewFSLoader(os.DirFS(root), runtime)
		logger.Debug("File system modules enabled.", "root", root, "pattern", client.ModulesPattern)
	}
	cfg.Defaults = client.DefaultRedirects(plugins, fsLoader)

	c, err := client.New(cfg)
	if err != nil {
		if cfg.Runtime != nil {
			_ = cfg.Runtime.Close(ctx)
		}
		return nil, fmt.Errorf("invalid redirect table: %w", err)
	}
	logger.Debug("Client ready.", "redirects", len(c.Redirects()), "concurrency", cfg.Concurrency)

	return &App{
		outW:    outW,
		logger:  logger,
		config:  appConfig,
		client:  c,
		modules: modules,
	}, nil
}

// Client returns the application's client. This is primarily for testing.
func (a *App) Client() *client.Client {
	return a.client
}

// Close releases the client, its wasm runtime and every plugin module that
// holds resources.
func (a *App) Close(ctx context.Context) error {
	errs := []error{a.client.Close(ctx)}
	for _, m := range a.modules {
		if c, ok := m.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
