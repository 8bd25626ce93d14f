package cmd

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Bitlatte/pageserve/internal/config"
	"github.com/Bitlatte/pageserve/internal/resources"
	"github.com/Bitlatte/pageserve/internal/server"
	"github.com/Bitlatte/pageserve/internal/watch"
)

// runServe serves the resources directory at root until ctx is cancelled.
func runServe(ctx context.Context, root string, cfg config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	a, err := newApp(root, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to load resources: %w", err)
	}

	srv := server.New(a.renderer, a.dir.Public(), server.Options{
		HomePage:       cfg.HomePage,
		NotFoundStatus: cfg.NotFoundStatus,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Watch {
		w := watch.New(a.dir.Path(resources.PagesDir), a.pages, logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Addr)
	})

	err = g.Wait()
	logger.Info("stopped", "pages_cached", a.pages.Len(), "pages", a.pages.Names())
	return err
}
