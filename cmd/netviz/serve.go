package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/dimalipin/netviz/internal/catalog"
	"github.com/dimalipin/netviz/internal/httpapi"
	"github.com/dimalipin/netviz/internal/ipheader"
	"github.com/dimalipin/netviz/internal/logging"
	"github.com/dimalipin/netviz/internal/nbi"
	"github.com/dimalipin/netviz/internal/observability"
	"github.com/dimalipin/netviz/internal/sim/state"
	"github.com/dimalipin/netviz/timectrl"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the visualizations over HTTP and gRPC",
		Long: `
Serve the frontend bundle, the JSON API and the gRPC SimulatorService while
a real-time frame clock drives the packet animation.

Examples:
  netviz serve                      # defaults, HTTP on :8080
  PORT=3000 netviz serve            # legacy port variable
  netviz serve -c netviz.yaml       # settings from a file
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	log := a.log
	cfg := a.cfg

	shutdownTracing, err := observability.InitTracing(ctx, cfg.ObservabilityTracing(), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	apiCollector, err := observability.NewAPICollector(reg)
	if err != nil {
		return err
	}
	simCollector, err := observability.NewSimCollector(reg)
	if err != nil {
		return err
	}

	store, summary, err := a.loadTopology()
	if err != nil {
		return err
	}
	apiCollector.SetTopologyCounts(len(summary.Subnets), len(summary.HostIPs), len(summary.Gateways))
	sim := a.newSimulation(store, 0, state.WithMetricsRecorder(simCollector))

	cards, err := catalog.Load(ctx, cfg.Server.DistPath, log)
	if err != nil {
		log.Warn(ctx, "failed to load visualizations", logging.Err(err))
	}
	inspector := ipheader.NewInspector()

	httpLis, err := httpapi.Listen(cfg.HTTPAddr(), cfg.Server.MaxConnections)
	if err != nil {
		return err
	}
	api := httpapi.New(sim,
		httpapi.WithCatalog(cards),
		httpapi.WithInspector(inspector),
		httpapi.WithStaticDir(cfg.Server.DistPath),
		httpapi.WithCollector(apiCollector),
		httpapi.WithLogger(log),
	)
	httpSrv := httpapi.NewHTTPServer(ctx, api.Handler())

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return err
	}
	grpcSrv := nbi.NewServer(nbi.NewSimulatorService(sim, inspector, log), log, apiCollector)

	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, apiCollector, log)

	go func() {
		log.Info(ctx, "serving HTTP",
			logging.String("addr", httpLis.Addr().String()),
			logging.String("dist_path", cfg.Server.DistPath),
		)
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server exited", logging.Err(err))
		}
	}()
	go func() {
		log.Info(ctx, "serving gRPC", logging.String("addr", grpcLis.Addr().String()))
		if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
		}
	}()

	clock := timectrl.NewTimeController(time.Now(), cfg.Simulation.FrameInterval, timectrl.RealTime)
	loopDone := runFrameLoop(ctx, clock, sim)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	<-loopDone

	grpcSrv.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "HTTP shutdown", logging.Err(err))
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}

// runFrameLoop ticks sim on every frame of clock until ctx is cancelled.
func runFrameLoop(ctx context.Context, clock *timectrl.TimeController, sim *state.Simulation) <-chan struct{} {
	clock.AddListener(func(uint64, time.Time) {
		sim.Tick()
	})
	return clock.Run(ctx, 0)
}

func serveMetrics(addr string, collector *observability.APICollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
