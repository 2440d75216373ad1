package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/tubereng/tuber/config"
	"github.com/tubereng/tuber/ecs"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	maxEntities := flag.Int("max-entities", 1<<16, "Entity capacity of the world. Must be a power of two.")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "Worker goroutines per system set.")
	chunkSize := flag.Int("chunk", 1024, "Rows per parallel movement chunk.")
	fanout := flag.Int("fanout", 8, "Entities per parent in the ChildOf hierarchy.")
	strict := flag.Bool("strict", false, "Panic on conflicting component borrows instead of waiting.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	profileMode := flag.String("profile", "", "Write a cpu, mem or trace profile to the current directory.")
	logLevel := flag.String("log-level", "info", "Log level.")
	flag.Parse()

	log, err := config.NewLogger(config.LoggingConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if *entityCount > *maxEntities {
		log.Fatal("initial entities exceed capacity", zap.Int("entities", *entityCount), zap.Int("max", *maxEntities))
	}

	if stop := startProfile(*profileMode); stop != nil {
		defer stop()
	}

	log.Info("starting ECS stress test")

	registry := ecs.NewComponentRegistry()
	registerComponents(registry)
	w := ecs.New(
		ecs.WithRegistry(registry),
		ecs.WithMaxEntityCount(*maxEntities),
		ecs.WithWorkers(*workers),
		ecs.WithStrictBorrows(*strict),
		ecs.WithLogger(log.Named("ecs")),
	)
	w.InsertResource(Clock{})
	registerSystems(w, *chunkSize)

	log.Info("populating world", zap.Int("entities", *entityCount))
	rng := rand.New(rand.NewPCG(1, 2))
	for range *entityCount {
		spawnRandomEntity(w, rng, rng.IntN(componentCount)+1)
	}
	if *fanout > 1 {
		if err := attachChildren(w, *fanout); err != nil {
			log.Fatal("attach children", zap.Error(err))
		}
	}
	log.Info("population complete")

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     componentCount,
		Systems:        systemCount,
		Workers:        *workers,
		GCPauseMetrics: *gcPauseMetrics,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	log.Info("running simulation", zap.Duration("duration", *duration))
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	if err := run(ctx, w, report); err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.SystemStats = w.SystemStats().Systems
	report.Storage = w.CollectStats()

	log.Info("simulation finished", zap.Int64("updates", report.TotalUpdates))

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("failed to generate report", zap.Error(err))
	}
	fmt.Println("--- End of Report ---")
}

// run ticks the world until ctx is done.
func run(ctx context.Context, w *ecs.Ecs, report *Report) error {
	start := time.Now()
	last := start
	for ctx.Err() == nil {
		now := time.Now()
		if clock, ok := ecs.ResourceMut[Clock](w); ok {
			clock.Get().Delta = float32(now.Sub(last).Seconds())
			clock.Release()
		}
		last = now

		w.RunSystems()
		if err := w.ExecutePendingCommands(); err != nil {
			return err
		}
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(now))
		report.TotalUpdates++
	}
	report.TotalTime = time.Since(start)
	report.UpdateTime.Finalize()
	return nil
}

func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfileAllocs
	case "trace":
		opt = profile.TraceProfile
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q\n", mode)
		os.Exit(2)
	}
	return profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook).Stop
}
