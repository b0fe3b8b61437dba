package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/metrics"
	"github.com/roach88/hull/internal/sweep"
)

const shutdownTimeout = 5 * time.Second

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the idle-worker sweep and serve metrics",
		Long: `Run in the foreground until interrupted.

The daemon returns Busy workers that have not sent a heartbeat for
sweep.idle_after back to Idle, every sweep.interval. When metrics.addr is
set it serves Prometheus metrics on /metrics.

Examples:
  hull daemon -c hull.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, opts)
		},
	}
}

func runDaemon(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config
	log := opts.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := openApp(ctx, opts, metrics.NewPrometheus(reg))
	if err != nil {
		return err
	}
	defer a.close()

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen for metrics", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		log.Info("serving metrics", "addr", ln.Addr().String())
	}

	var wg sync.WaitGroup
	if cfg.Sweep.Enabled {
		s := sweep.New(a.gateway, cfg.Sweep.IdleAfter.Std(), sweep.WithLogger(log))
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx, cfg.Sweep.Interval.Std())
		}()
		log.Info("sweep enabled", "interval", cfg.Sweep.Interval.Std(), "idle_after", cfg.Sweep.IdleAfter.Std())
	}

	log.Info("daemon started", "database", cfg.Database)
	<-ctx.Done()
	log.Info("daemon stopping")

	wg.Wait()
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
