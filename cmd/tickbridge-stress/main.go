package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/plus3/tickbridge/body"
	"github.com/plus3/tickbridge/internal/config"
	"github.com/plus3/tickbridge/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tickbridge-stress:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config file. Flags override its values.")
	ticks := flag.Int("ticks", 0, "Number of ticks each shard runs.")
	entities := flag.Int("entities", 0, "Number of creeps each shard keeps alive.")
	shards := flag.Int("shards", 0, "Number of independent shards run concurrently.")
	deathRate := flag.Float64("death-rate", 0, "Chance per creep per tick of dying.")
	reissueRate := flag.Float64("reissue-rate", 0, "Chance per creep per tick of its ref being reissued.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ticks":
			cfg.Stress.Ticks = *ticks
		case "entities":
			cfg.Stress.Entities = *entities
		case "shards":
			cfg.Stress.Shards = *shards
		case "death-rate":
			cfg.Stress.DeathRate = *deathRate
		case "reissue-rate":
			cfg.Stress.ReissueRate = *reissueRate
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}
	parts, err := body.ParseParts(cfg.Stress.Body)
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("populating shards",
		zap.Int("shards", cfg.Stress.Shards),
		zap.Int("creeps", cfg.Stress.Entities),
	)
	report := &Report{
		Config:         cfg.Stress,
		PruneEvery:     cfg.World.PruneInterval,
		BatchRenew:     cfg.World.BatchRenew,
		Shards:         make([]ShardResult, cfg.Stress.Shards),
		GCPauseMetrics: *gcPauseMetrics,
	}

	runtime.ReadMemStats(&report.MemStatsStart)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i := range cfg.Stress.Shards {
		g.Go(func() error {
			s := newShard(i, cfg, parts, logger.With(zap.Int("shard", i)))
			res, err := s.run(ctx)
			report.Shards[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("shard failed: %w", err)
	}

	report.TotalTime = time.Since(startTime)
	runtime.ReadMemStats(&report.MemStatsEnd)
	logger.Info("simulation finished", zap.Duration("elapsed", report.TotalTime))

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	fmt.Println("--- End of Report ---")
	return nil
}
