package cmd

import (
	"log/slog"
	"os"

	"github.com/Bitlatte/pageserve/internal/config"
	"github.com/Bitlatte/pageserve/internal/layout"
	"github.com/Bitlatte/pageserve/internal/markdown"
	"github.com/Bitlatte/pageserve/internal/resources"
	"github.com/Bitlatte/pageserve/internal/store"
)

// app holds everything built from a resources directory at startup.
type app struct {
	dir      *resources.Dir
	pages    *store.Store
	renderer *layout.Renderer
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// newApp validates the resources directory and loads the template. Any
// error here is a configuration error.
func newApp(root string, cfg config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	dir, err := resources.Open(root)
	if err != nil {
		return nil, err
	}

	tmpl, err := layout.Load(dir.FS(), resources.TemplateFile)
	if err != nil {
		return nil, err
	}

	pages := store.New(dir.Pages(), markdown.New(),
		store.WithFallback(cfg.NotFoundPage),
		store.WithLogger(logger),
	)
	if _, err := os.Stat(dir.Path(resources.PagesDir)); err != nil {
		logger.Warn("pages directory not readable; every page will use the fallback document", "error", err)
	}

	return &app{
		dir:      dir,
		pages:    pages,
		renderer: layout.NewRenderer(tmpl, pages),
	}, nil
}
