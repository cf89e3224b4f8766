package experiment

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/san-kum/fluidsim/internal/config"
	"golang.org/x/sync/errgroup"
)

// Compare runs each config as an independent experiment on its own
// goroutine, each with its own solver, simulation and metrics. Results keep
// the order of cfgs. The first failure cancels the remaining runs.
func Compare(ctx context.Context, cfgs []*config.Config, reg *Registry, logger *log.Logger, sampleEvery int) ([]*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	results := make([]*Result, len(cfgs))
	g, ctx := errgroup.WithContext(ctx)

	for i, cfg := range cfgs {
		g.Go(func() error {
			exp, err := New(cfg, reg,
				WithLogger(logger.With("run", i, "solver", cfg.Solver)),
				WithSampleEvery(sampleEvery),
			)
			if err != nil {
				return err
			}
			res, err := exp.Run(ctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
