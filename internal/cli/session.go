package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tabula"
	"github.com/roach88/tabula/internal/config"
	"github.com/roach88/tabula/internal/fscache"
	"github.com/roach88/tabula/internal/render"
	"github.com/roach88/tabula/internal/store"
)

// env is everything a command needs to evaluate: the project
// configuration, a session with definitions loaded, and the optional store.
type env struct {
	cfg     *config.Config
	session *tabula.Session
	store   *store.Store
	cache   *fscache.Cache
	logger  *slog.Logger
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads --config, or tabula.toml in the root when it exists.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	if o.Config != "" {
		return config.LoadFile(o.Config)
	}
	return config.Load(o.Root)
}

// openEnv builds the session for a command. Saved definitions are replayed
// first, then the configured bundles, then the --defs bundles, so bundle
// definitions win over saved ones of the same name.
func openEnv(ctx context.Context, o *RootOptions, cmd *cobra.Command) (*env, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	e := &env{cfg: cfg, logger: newLogger(cmd.ErrOrStderr(), o.Verbose)}

	dbPath := o.Database
	if dbPath == "" {
		dbPath = cfg.StorePath()
	}
	if dbPath != "" {
		e.logger.Debug("opening database", "path", dbPath)
		if e.store, err = store.Open(dbPath); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
	}

	sessionOpts := []tabula.Option{
		tabula.WithLogger(e.logger),
		tabula.WithMaxDepth(cfg.Engine.MaxDepth),
	}
	if e.store != nil {
		sessionOpts = append(sessionOpts, tabula.WithStore(e.store))
	}
	if cfg.Cache.Disabled {
		sessionOpts = append(sessionOpts, tabula.WithoutCache())
	} else {
		e.cache = fscache.New(
			fscache.WithLifespan(cfg.Cache.Lifespan.Duration),
			fscache.WithDebounce(cfg.Cache.Debounce.Duration),
			fscache.WithLogger(e.logger))
		sessionOpts = append(sessionOpts, tabula.WithCache(e.cache))
	}

	e.session, err = tabula.New(o.Root, sessionOpts...)
	if err != nil {
		_ = e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open root", err)
	}

	if n, err := e.session.Replay(ctx); err != nil {
		_ = e.Close()
		return nil, WrapExitError(ExitCommandError, "failed to replay definitions", err)
	} else if n > 0 {
		e.logger.Debug("definitions replayed", "count", n)
	}

	bundles := append(cfg.DefinitionFiles(), o.Defs...)
	for _, path := range bundles {
		n, err := e.session.LoadBundle(path)
		if err != nil {
			_ = e.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load definitions", err)
		}
		e.logger.Debug("bundle loaded", "path", path, "definitions", n)
	}
	return e, nil
}

func (e *env) limits() render.Limits {
	return render.Limits{Rows: e.cfg.Render.RowsLimit, Cols: e.cfg.Render.ColsLimit}
}

// Close releases the cache and the database.
func (e *env) Close() error {
	var errs []error
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}
