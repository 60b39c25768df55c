package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrenrich/internal/enrich"
	"github.com/sells-group/addrenrich/internal/feature"
	"github.com/sells-group/addrenrich/internal/metrics"
	"github.com/sells-group/addrenrich/internal/resilience"
	"github.com/sells-group/addrenrich/pkg/geocode"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [source]",
	Short: "Geocode every address in a registry file and write GeoJSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyEnrichFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		start := time.Now()
		runID := uuid.New().String()
		log := zap.L().With(zap.String("run_id", runID), zap.String("command", "enrich"))

		outPath, stats, err := runEnrich(ctx, sourceArg(args), log)
		if err != nil {
			log.Error("run failed", zap.Error(err))
			return err
		}

		elapsed := time.Since(start)
		log.Info("run complete",
			zap.String("output", outPath),
			zap.Int("total", stats.Total),
			zap.Int("enriched", stats.Enriched),
			zap.Int("dropped", stats.Dropped),
			zap.Any("dropped_by_kind", stats.DroppedByKind),
			zap.Duration("execution_time", elapsed),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d addresses to %s\n", stats.Enriched, stats.Total, outPath)
		fmt.Fprintf(cmd.OutOrStdout(), "Execution time: %0.2f seconds.\n", elapsed.Seconds())
		return nil
	},
}

// runEnrich loads source, enriches its addresses and writes the output file.
func runEnrich(ctx context.Context, source string, log *zap.Logger) (string, enrich.Stats, error) {
	reg, err := loadRegistry(ctx, source, log)
	if err != nil {
		return "", enrich.Stats{}, err
	}

	limits := resilience.NewLimits(cfg.Geocode.Limits())
	var client geocode.Client = geocode.NewLimitedClient(
		geocode.NewHTTPClient(cfg.Geocode.Endpoint),
		limits.Gate, limits.Limiter, limits.Cooldown,
		geocode.WithCallTimeout(cfg.Geocode.Timeout),
		geocode.WithLogger(log),
	)

	if cfg.Geocode.CachePath != "" {
		cached, err := geocode.NewCachedClient(ctx, client, cfg.Geocode.CachePath)
		if err != nil {
			return "", enrich.Stats{}, err
		}
		defer func() {
			log.Info("geocode cache", zap.Int64("hits", cached.Hits()), zap.Int64("misses", cached.Misses()))
			if err := cached.Close(); err != nil {
				log.Warn("close geocode cache", zap.Error(err))
			}
		}()
		client = cached
	}

	m := metrics.New()
	if err := m.WatchLimits(limits); err != nil {
		return "", enrich.Stats{}, err
	}
	if addr := cfg.Metrics.ListenAddr; addr != "" {
		metricsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.ListenAndServe(metricsCtx, addr, metrics.NewRouter(m)); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	log.Info("starting enrichment",
		zap.Int("addresses", len(reg.Addresses)),
		zap.Int("batch_size", cfg.Batch.Size),
		zap.String("endpoint", cfg.Geocode.Endpoint),
		zap.Int("concurrency", cfg.Geocode.Concurrency),
		zap.Int("rate_limit", cfg.Geocode.RateLimit),
		zap.Duration("rate_window", cfg.Geocode.RateWindow),
	)

	orch := enrich.New(client,
		enrich.WithBatchSize(cfg.Batch.Size),
		enrich.WithRecorder(m),
		enrich.WithLogger(log),
	)
	out, stats, err := orch.Run(ctx, reg.Addresses)
	if err != nil {
		return "", stats, err
	}

	outPath := feature.OutputPath(reg.Name, cfg.Output.Dir)
	if err := feature.WriteFile(outPath, feature.Build(out)); err != nil {
		return "", stats, eris.Wrap(err, "write output")
	}
	return outPath, stats, nil
}

var (
	enrichEndpoint    string
	enrichConcurrency int
	enrichRate        int
	enrichRateWindow  time.Duration
	enrichCooldown    time.Duration
	enrichTimeout     time.Duration
	enrichCache       string
	enrichBatchSize   int
	enrichOutDir      string
)

// applyEnrichFlags copies explicitly set flags over the loaded config.
func applyEnrichFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("endpoint") {
		cfg.Geocode.Endpoint = enrichEndpoint
	}
	if f.Changed("concurrency") {
		cfg.Geocode.Concurrency = enrichConcurrency
	}
	if f.Changed("rate") {
		cfg.Geocode.RateLimit = enrichRate
	}
	if f.Changed("rate-window") {
		cfg.Geocode.RateWindow = enrichRateWindow
	}
	if f.Changed("cooldown") {
		cfg.Geocode.Cooldown = enrichCooldown
	}
	if f.Changed("timeout") {
		cfg.Geocode.Timeout = enrichTimeout
	}
	if f.Changed("cache") {
		cfg.Geocode.CachePath = enrichCache
	}
	if f.Changed("batch-size") {
		cfg.Batch.Size = enrichBatchSize
	}
	if f.Changed("out-dir") {
		cfg.Output.Dir = enrichOutDir
	}
}

func init() {
	f := enrichCmd.Flags()
	f.StringVar(&enrichEndpoint, "endpoint", geocode.DefaultEndpoint, "geocoding service URL")
	f.IntVar(&enrichConcurrency, "concurrency", 252, "maximum geocoding calls in flight")
	f.IntVar(&enrichRate, "rate", 80, "maximum geocoding calls started per rate window")
	f.DurationVar(&enrichRateWindow, "rate-window", time.Second, "rate limit window")
	f.DurationVar(&enrichCooldown, "cooldown", 5*time.Second, "pause after the service refuses a connection")
	f.DurationVar(&enrichTimeout, "timeout", 30*time.Second, "per-call timeout")
	f.StringVar(&enrichCache, "cache", "", "SQLite geocode cache path (disabled if empty)")
	f.IntVar(&enrichBatchSize, "batch-size", enrich.DefaultBatchSize, "addresses per batch")
	f.StringVar(&enrichOutDir, "out-dir", "", "output directory (default: current directory)")
	rootCmd.AddCommand(enrichCmd)
}
