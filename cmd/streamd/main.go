package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petrolink/marketstream/internal/config"
	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/registry"
	"github.com/petrolink/marketstream/internal/router"
	"github.com/petrolink/marketstream/internal/server"
	"github.com/petrolink/marketstream/internal/simulator"
	"github.com/petrolink/marketstream/internal/stream"
	"github.com/petrolink/marketstream/internal/version"
)

const maxPushBodyBytes = 1 << 20

func main() {
	configPath := flag.String("config", "configs/streamd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting streamd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"port", cfg.Server.Port,
		"commodities", len(cfg.Simulator.Commodities),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	m := metrics.New("marketstream")

	// Connection registry and fan-out router
	regCfg := registry.Config{
		OutboundQueueSize: cfg.Stream.OutboundQueueSize,
		WriteTimeout:      cfg.Stream.WriteTimeout,
		PingInterval:      cfg.Stream.IdleTimeout * 9 / 10,
	}
	reg := registry.NewRegistry(regCfg, m, logger)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		reg.Stop(shutdownCtx)
	}()

	rtr := router.NewRouter(reg, logger)

	// Market simulator feeds the router
	seeds := make([]simulator.Seed, 0, len(cfg.Simulator.Commodities))
	for _, c := range cfg.Simulator.Commodities {
		seeds = append(seeds, simulator.Seed{Symbol: c.Symbol, Price: c.Price, Volume: c.Volume})
	}
	simCfg := simulator.Config{
		TickInterval:    cfg.Simulator.TickInterval,
		PriceJitterPct:  cfg.Simulator.PriceJitterPct,
		VolumeJitterPct: cfg.Simulator.VolumeJitterPct,
		MinVolume:       cfg.Simulator.MinVolume,
		ActivityMin:     cfg.Simulator.ActivityMin,
		ActivityMax:     cfg.Simulator.ActivityMax,
		Seeds:           seeds,
	}
	sim := simulator.NewSimulator(simCfg, rtr, m, logger)

	logger.Info("starting market simulator...")
	if err := sim.Start(ctx); err != nil {
		logger.Error("failed to start market simulator", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		sim.Stop(shutdownCtx)
	}()

	// Targeted streamer for account-scoped pushes
	str := stream.NewStreamer(reg, logger)

	// WebSocket endpoint
	wsHandler := server.NewHandler(
		server.Config{
			MaxFrameBytes: cfg.Stream.MaxFrameBytes,
			IdleTimeout:   cfg.Stream.IdleTimeout,
		},
		reg, sim.Store(), nil, m, logger,
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WSPath, wsHandler)
	mux.Handle("/health", healthHandler(reg, sim))
	mux.HandleFunc("/internal/analytics", pushHandler(str.PushAnalytics, logger))
	mux.HandleFunc("/internal/portfolio", pushHandler(str.PushPortfolio, logger))
	mux.HandleFunc("/internal/alerts", pushHandler(str.PushAlert, logger))
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, m.Handler())
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr, "ws_path", cfg.Server.WSPath)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("streamd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("streamd stopped")
}

// healthHandler reports engine liveness and headline stats.
func healthHandler(reg registry.Registry, sim simulator.Simulator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		simStats := sim.Stats()
		regStats := reg.Stats()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		health.Components["registry"] = map[string]any{
			"connections": regStats.Connections,
			"users":       regStats.Users,
			"topics":      regStats.Topics,
		}
		health.Components["simulator"] = map[string]any{
			"running":     simStats.Running == 1,
			"ticks":       simStats.TicksRun,
			"commodities": sim.Store().Len(),
		}
		if simStats.Running != 1 {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})
}

// pushHandler adapts one streamer push operation to an internal HTTP
// endpoint: POST ?user_id=<id> with a JSON body.
func pushHandler(push func(userID string, payload json.RawMessage), logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}

		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			http.Error(w, "user_id parameter required", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxPushBodyBytes))
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !json.Valid(body) {
			http.Error(w, "body must be valid JSON", http.StatusBadRequest)
			return
		}

		push(userID, body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "queued",
			"user_id": userID,
		})
	}
}
