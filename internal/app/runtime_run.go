package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("solwatch runtime starting", "addr", r.cfg.HTTPAddr, "strategy_path", r.cfg.StrategyPath)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, conn := range r.connectors {
		connector := conn
		group.Go(func() error {
			r.logger.Info("connector starting", "connector", connector.Name())
			return connector.Start(groupCtx)
		})
	}
	if r.watcher != nil {
		group.Go(func() error {
			return r.watcher.Start(groupCtx)
		})
	}
	if r.digest != nil {
		group.Go(func() error {
			return r.digest.Start(groupCtx)
		})
	}
	group.Go(func() error {
		err := r.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
