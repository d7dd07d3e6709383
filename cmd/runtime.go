package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajujo/teaching-system/internal/config"
	"github.com/ajujo/teaching-system/internal/content"
	"github.com/ajujo/teaching-system/internal/library"
	"github.com/ajujo/teaching-system/internal/llm"
	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/observability"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/progress"
	"github.com/ajujo/teaching-system/internal/store"
	"github.com/ajujo/teaching-system/internal/teaching"
)

// providerOffline selects the built-in templates instead of a model.
const providerOffline = "offline"

// endFlush bounds the trace flush on exit.
const endFlush = 5 * time.Second

// runtime is everything a teaching command needs, built from config and flags.
type runtime struct {
	cfg      config.Config
	log      *logger.Logger
	journal  *store.Store
	students *progress.Store
	personas *persona.Registry
	engine   *teaching.Engine

	shutdown observability.Shutdown
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if d, _ := cmd.Flags().GetString("data"); d != "" {
		cfg = cfg.WithDataDir(d)
	}
	return cfg, nil
}

// newRuntime wires the journal, stores, personas and content generator into
// a teaching engine. logMode overrides the configured log mode when set.
func newRuntime(ctx context.Context, cmd *cobra.Command, logMode string) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if logMode == "" {
		logMode = cfg.LogMode
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log}
	rt.shutdown, err = observability.Setup(ctx, observability.Options{
		ServiceName: "tutor",
		Version:     version,
		Stdout:      cfg.TraceStdout,
		Endpoint:    cfg.OTelEndpoint,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	dbPath := cfg.DBPath
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		dbPath = p
	}
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
	} else {
		err = store.EnsureDir(dbPath)
	}
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	rt.journal, err = store.Open(dbPath)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.personas, err = loadPersonas(cfg, log)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.students = progress.NewStore(cfg.StateDir())

	gen, err := rt.content(ctx, cmd)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.engine = teaching.NewEngine(teaching.Options{
		Library:        library.NewDir(cfg.BooksDir()),
		Progress:       rt.students,
		Personas:       rt.personas,
		Content:        gen,
		Journal:        rt.journal,
		Logger:         log,
		ContentTimeout: cfg.ContentTimeout,
		ConfirmAdvance: cfg.ConfirmAdvance,
	})
	return rt, nil
}

// content picks the model-backed generator, or the offline templates when no
// provider is configured.
func (rt *runtime) content(ctx context.Context, cmd *cobra.Command) (teaching.Content, error) {
	name, _ := cmd.Flags().GetString("provider")
	if name == providerOffline {
		rt.log.Info("content provider", "provider", providerOffline)
		return content.Offline{}, nil
	}

	cfg, ok, err := llm.ConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("llm config: %w", err)
	}
	if name != "" {
		cfg, ok = cfg.WithProvider(name), true
	}
	if !ok {
		rt.log.Warn("no LLM provider configured, using offline content")
		return content.Offline{}, nil
	}

	p, err := llm.NewProvider(ctx, cfg, rt.journal, rt.log)
	if err != nil {
		return nil, err
	}
	rt.log.Info("content provider", "provider", cfg.Provider, "model", p.ModelID())
	return content.NewGenerator(p, content.Config{}, rt.log), nil
}

func loadPersonas(cfg config.Config, log *logger.Logger) (*persona.Registry, error) {
	reg, err := persona.Load(cfg.PersonasFile)
	if err != nil {
		return nil, fmt.Errorf("load personas %s: %w", cfg.PersonasFile, err)
	}
	log.Debug("personas loaded", "path", cfg.PersonasFile, "count", len(reg.List()))
	return reg, nil
}

func (rt *runtime) Close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.log.Warn("close journal failed", "error", err)
		}
	}
	if rt.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), endFlush)
		defer cancel()
		if err := rt.shutdown(ctx); err != nil {
			rt.log.Warn("flush traces failed", "error", err)
		}
	}
	rt.log.Sync()
}

// isTerminal reports whether w is an interactive character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
