package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/huangsam/prosoul/internal/api"
	"github.com/huangsam/prosoul/internal/esclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may finish on exit.
const shutdownTimeout = 10 * time.Second

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve models, assessments and reports over HTTP",
	Long: `Start an HTTP API on --listen.

Routes:
  GET  /health                      - liveness
  GET  /models                      - model names
  GET  /models/{name}               - model outline
  GET  /models/{name}/assessment    - scores for ?from=&to=&attribute= (not published)
  GET  /models/{name}/report        - ranked project averages, ?report=&limit=
  POST /models/{name}/runs          - full quarterly run, published unless ?publish=false
  GET  /metrics                     - Prometheus metrics

Examples:
  prosoul serve --listen :8080 --index git_enriched
  curl 'localhost:8080/models/health/report?from=1%20year%20ago&limit=10'`,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		deps, cleanup, err := openDeps(cfg, esclient.NewMetrics(reg))
		if err != nil {
			return err
		}
		defer cleanup()

		s := api.NewServer(cfg, deps, version, reg)
		srv := &http.Server{
			Addr:              cfg.Listen,
			Handler:           api.NewRouter(s, reg),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		_, _ = fmt.Fprintf(os.Stderr, "🌐 prosoul: Serving on %s (metrics index %s)\n", cfg.Listen, cfg.Index)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_, _ = fmt.Fprintln(os.Stderr, "🛑 Shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}
