package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/NicolasGut/motorsport-digest/internal/app"
	"github.com/NicolasGut/motorsport-digest/internal/logger"
	"github.com/NicolasGut/motorsport-digest/internal/metrics"
)

func serveCmd(debug *bool) *cobra.Command {
	var addr string
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose /health and /metrics, optionally running the pipeline on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.Close()
			if addr == "" {
				addr = ":" + e.cfg.MonitoringPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			idle := make(chan struct{})
			close(idle)
			var done <-chan struct{} = idle
			if every > 0 {
				p, err := e.pipeline(ctx)
				if err != nil {
					return err
				}
				done = schedule(ctx, every, func(ctx context.Context) {
					e.resetBudget()
					if res, err := p.Run(ctx); err != nil {
						logger.Error("scheduled run failed", "error", err)
					} else {
						logger.Info("scheduled run done", "run_id", res.RunID, "summarized", res.Summarized)
					}
				})
			}
			// The store is closed on return, so wait for a run in progress.
			defer func() {
				stop()
				<-done
			}()

			srv := &http.Server{
				Addr:              addr,
				Handler:           app.NewMonitoringHandler(metrics.Global, e.limiter),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("monitoring server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("monitoring server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default :MONITORING_PORT)")
	cmd.Flags().DurationVar(&every, "every", 0, "Run the pipeline at this interval (0 disables)")
	return cmd
}

// schedule calls run immediately and then at every tick until ctx is done.
// Failures are recorded in the metrics and reported by /health. The returned
// channel is closed once the last call has returned.
func schedule(ctx context.Context, every time.Duration, run func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			run(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
