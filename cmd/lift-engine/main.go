package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liftstack/lift-engine/internal/config"
	"github.com/liftstack/lift-engine/internal/decision"
	"github.com/liftstack/lift-engine/internal/design"
	"github.com/liftstack/lift-engine/internal/engine"
	"github.com/liftstack/lift-engine/internal/insights"
	"github.com/liftstack/lift-engine/internal/metrics"
	"github.com/liftstack/lift-engine/internal/report"
	"github.com/liftstack/lift-engine/internal/services"
	"github.com/liftstack/lift-engine/internal/simulate"
	"github.com/liftstack/lift-engine/internal/storage"
	"github.com/liftstack/lift-engine/internal/utils"
)

func main() {
	var (
		configPath string
		runs       int
		showReport bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.IntVar(&runs, "runs", 0, "Number of experiment cycles (overrides config)")
	flag.BoolVar(&showReport, "report", true, "Render the history and insight tables after the run")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}
	if runs <= 0 {
		runs = cfg.Experiment.Runs
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting lift-engine", slog.Int("runs", runs))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Error("failed to open experiment store", slog.String("path", cfg.Storage.Path), slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	// A configured seed pins every random source; each component gets its own
	// stream so changing one stage does not shuffle the others.
	var designSrc, simSrc, samplerSrc, fallbackSrc rand.Source
	if seed := cfg.Simulation.Seed; seed != 0 {
		designSrc = rand.NewPCG(seed, 1)
		simSrc = rand.NewPCG(seed, 2)
		samplerSrc = rand.NewPCG(seed, 3)
		fallbackSrc = rand.NewPCG(seed, 4)
	}

	rule, err := decision.NewRule(cfg.Decision.ShipThreshold, cfg.Decision.RollbackThreshold)
	if err != nil {
		logger.Error("invalid decision thresholds", slog.Any("error", err))
		os.Exit(1)
	}

	bayes := engine.NewBayesEngine(logger,
		engine.SamplerConfig{
			Samples: cfg.Inference.Samples,
			Tune:    cfg.Inference.Tune,
			Mode:    engine.BackendMode(cfg.Inference.BackendMode),
			Src:     samplerSrc,
		},
		engine.WithFallback(&engine.ConjugateApproximator{
			Draws: cfg.Inference.FallbackDraws,
			Src:   fallbackSrc,
		}),
	)

	pipeline := engine.NewPipeline(
		logger,
		design.NewCatalogGenerator(cfg.Experiment.SampleSize, designSrc),
		&simulate.Simulator{BaseRate: cfg.Simulation.BaseRate, Src: simSrc},
		bayes,
		rule,
		store,
	)
	service := services.NewExperimentService(logger, pipeline)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	exitCode := 0
	if _, err := service.RunBatch(ctx, runs); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("run interrupted")
		} else {
			logger.Error("experiment batch failed", slog.Any("error", err))
			exitCode = 1
		}
	}

	// Mining and reporting work off whatever history exists, including runs
	// persisted before an interrupt.
	history, err := store.ListExperiments(context.Background(), 200)
	if err != nil {
		logger.Warn("failed to load history", slog.Any("error", err))
	}
	mined, err := insights.NewMiner(logger, store).Mine(context.Background(), history)
	if err != nil {
		logger.Warn("insight mining failed", slog.Any("error", err))
	}

	if showReport {
		writer := report.NewWriter(os.Stdout)
		writer.Experiments(history)
		writer.Insights(mined)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancel()
	}

	logger.Info("lift-engine stopped")
	if exitCode != 0 {
		store.Close()
		os.Exit(exitCode)
	}
}
