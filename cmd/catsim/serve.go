package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/star/catsim/internal/api"
	"github.com/star/catsim/internal/health"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve variability evaluations over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CATSIM_HTTP_ADDR)")
	return cmd
}

// dataChecks reports configured data locations that do not exist.
func (a *app) dataChecks() []health.Check {
	var checks []health.Check
	if dir := a.cfg.DataDir; dir != "" {
		checks = append(checks, func() error {
			info, err := os.Stat(dir)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}
			return nil
		})
	}
	if path := a.cfg.MLTArchive; path != "" {
		checks = append(checks, func() error {
			_, err := os.Stat(path)
			return err
		})
	}
	return checks
}

func (a *app) serve(parent context.Context) error {
	logger := a.logger
	ev, err := a.evaluator()
	if err != nil {
		logger.Error("building evaluator", "error", err)
		return err
	}

	srv := api.NewServer(a.cfg.HTTPAddr, logger, a.cfg.Auth, ev, api.Options{
		TrustProxy:        a.cfg.TrustProxy,
		MaxEvalsPerClient: a.cfg.MaxEvalsPerIP,
		MaxBodyBytes:      a.cfg.MaxBodyBytes,
		Ready:             a.dataChecks(),
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", a.cfg.HTTPAddr, "auth_enabled", a.cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server listen error", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
