package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fourad-server/internal/catalog"
	"fourad-server/internal/infrastructure/storage/sqlite"
	"fourad-server/internal/sim"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	cfg, err := sim.LoadConfig()
	if err != nil {
		logger.Log.Fatal(err)
	}

	var (
		seed      uint
		template  string
		count     int
		location  string
		fleeBelow int
		list      bool
	)
	flag.IntVar(&cfg.Trials, "trials", cfg.Trials, "Number of encounters")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Worker goroutines (0 = NumCPU)")
	flag.UintVar(&seed, "seed", uint(cfg.Seed), "Base seed")
	flag.IntVar(&cfg.MaxRounds, "max-rounds", cfg.MaxRounds, "Round limit per encounter")
	flag.StringVar(&cfg.DB, "db", cfg.DB, "SQLite file for results (empty to skip)")
	flag.StringVar(&template, "monster", "goblins", "Monster template key")
	flag.IntVar(&count, "count", 0, "Minor group size (0 = roll)")
	flag.StringVar(&location, "location", "room", "room | corridor")
	flag.IntVar(&fleeBelow, "flee-below", 0, "Flee when fewer heroes stand (0 = fight to the end)")
	flag.BoolVar(&list, "list", false, "Print stored runs and exit")
	flag.Parse()
	cfg.Seed = uint32(seed)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if list {
		if err := printRuns(ctx, cfg.DB, template); err != nil {
			logger.Log.Fatal(err)
		}
		return
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Log.Fatal("Failed to load catalog: ", err)
	}

	sc := sim.Scenario{
		Name: fmt.Sprintf("%s@%s", template, location),
		Start: api.StartPayload{
			Monsters: []api.MonsterSpec{{Template: template, Count: count}},
			Location: location,
		},
		FleeBelow: fleeBelow,
	}
	if err := sc.Start.Validate(); err != nil {
		logger.Log.Fatal(err)
	}

	sum, err := sim.Run(ctx, cfg, cat, sc)
	if err != nil {
		logger.Log.Fatal("Simulation failed: ", err)
	}

	fmt.Printf("%-20s trials=%d win=%.1f%% wipe=%d escape=%d stalemate=%d deaths=%d rounds=%.2f (%s)\n",
		sum.Scenario, sum.Trials, sum.WinRate()*100, sum.Wipes, sum.Escapes, sum.Stalemates,
		sum.HeroDeaths, sum.AvgRounds, sum.Elapsed)

	if cfg.DB == "" {
		return
	}
	store, err := sqlite.Open(ctx, cfg.DB)
	if err != nil {
		logger.Log.Fatal(err)
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, sum.Record())
	if err != nil {
		logger.Log.Fatal(err)
	}
	logger.Log.WithField("run_id", id).Info("Run stored.")
}

func printRuns(ctx context.Context, path, template string) error {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, "", 20)
	if err != nil {
		return err
	}
	for _, r := range runs {
		if template != "" && !strings.HasPrefix(r.Scenario, template+"@") {
			continue
		}
		fmt.Printf("#%d %s %-20s seed=%d trials=%d win=%d wipe=%d escape=%d rounds=%.2f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Scenario, r.Seed, r.Trials,
			r.Victories, r.Wipes, r.Escapes, r.AvgRounds)
	}
	return nil
}
