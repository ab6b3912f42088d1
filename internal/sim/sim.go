// Package sim - симулятор баланса: много независимых встреч с зерном на испытание.
//
// Каждое испытание владеет своей встречей и своим генератором, воркеры ничего не делят.
// Итог не зависит от числа воркеров: зерно испытания выводится из базового зерна и номера.
package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"fourad-server/internal/catalog"
	"fourad-server/internal/engine"
	"fourad-server/internal/engine/handlers"
	"fourad-server/internal/engine/handlers/actions"
	"fourad-server/internal/infrastructure/storage/sqlite"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config - параметры прогона. Флаги cmd/simulate перекрывают окружение.
type Config struct {
	Trials    int    `env:"SIM_TRIALS" envDefault:"1000"`
	Workers   int    `env:"SIM_WORKERS" envDefault:"0"` // 0 = по числу CPU
	Seed      uint32 `env:"SIM_SEED" envDefault:"1"`
	MaxRounds int    `env:"SIM_MAX_ROUNDS" envDefault:"30"`
	DB        string `env:"SIM_DB" envDefault:"sim.db"`

	// AutoRerolls - правила встречи, как у сервера.
	AutoRerolls bool `env:"ENCOUNTER_AUTO_REROLLS" envDefault:"true"`
}

// LoadConfig читает конфиг из окружения.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse sim config: %w", err)
	}
	return cfg, nil
}

// Scenario - встреча, которую повторяет симулятор.
type Scenario struct {
	Name  string
	Start api.StartPayload

	// FleeBelow - партия бежит, когда живых героев меньше. 0 - бьются до конца.
	FleeBelow int
}

// Summary - агрегаты прогона.
type Summary struct {
	Scenario   string
	Seed       uint32
	Trials     int
	Victories  int
	Wipes      int
	Escapes    int
	Stalemates int // уперлись в MaxRounds
	HeroDeaths int
	AvgRounds  float64
	Elapsed    time.Duration
}

// WinRate - доля побед.
func (s Summary) WinRate() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Victories) / float64(s.Trials)
}

// Record конвертирует сводку в запись хранилища.
func (s Summary) Record() sqlite.Run {
	return sqlite.Run{
		Scenario:   s.Scenario,
		Seed:       s.Seed,
		Trials:     s.Trials,
		Victories:  s.Victories,
		Wipes:      s.Wipes,
		Escapes:    s.Escapes,
		Stalemates: s.Stalemates,
		HeroDeaths: s.HeroDeaths,
		AvgRounds:  s.AvgRounds,
	}
}

// Trial - итог одного испытания.
type Trial struct {
	Index      int
	Seed       uint32
	Outcome    engine.Outcome
	Rounds     int
	HeroDeaths int
	Err        error
}

var ErrNoTrials = errors.New("trials must be greater than zero")

// TrialSeed - зерно испытания i. Не ноль.
func TrialSeed(base uint32, i int) uint32 {
	s := base + uint32(i+1)*0x9E3779B9
	if s == 0 {
		s = 1
	}
	return s
}

// Run прогоняет cfg.Trials испытаний сценария на пуле воркеров.
func Run(ctx context.Context, cfg Config, cat *catalog.Catalog, sc Scenario) (Summary, error) {
	if cfg.Trials <= 0 {
		return Summary{}, ErrNoTrials
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, cfg.Trials)
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 30
	}

	log := logger.Component("sim").WithFields(logrus.Fields{
		"scenario": sc.Name,
		"trials":   cfg.Trials,
		"workers":  workers,
		"seed":     cfg.Seed,
	})
	log.Info("Simulation started.")
	began := time.Now()

	jobs := make(chan int, cfg.Trials)
	results := make(chan Trial, workers)

	// 1. Воркеры
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				results <- RunTrial(cfg, cat, sc, i)
			}
		}()
	}

	// 2. Очередь испытаний
	for i := 0; i < cfg.Trials; i++ {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// 3. Агрегация
	sum := Summary{Scenario: sc.Name, Seed: cfg.Seed}
	totalRounds := 0
	var firstErr error
	for tr := range results {
		if tr.Err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("trial %d (seed %d): %w", tr.Index, tr.Seed, tr.Err)
			}
			continue
		}
		sum.Trials++
		totalRounds += tr.Rounds
		sum.HeroDeaths += tr.HeroDeaths
		switch tr.Outcome {
		case engine.OutcomeVictory:
			sum.Victories++
		case engine.OutcomeWipe:
			sum.Wipes++
		case engine.OutcomeEscaped:
			sum.Escapes++
		default:
			sum.Stalemates++
		}
	}
	if sum.Trials > 0 {
		sum.AvgRounds = float64(totalRounds) / float64(sum.Trials)
	}
	sum.Elapsed = time.Since(began)

	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if firstErr != nil {
		return sum, firstErr
	}

	log.WithFields(logrus.Fields{
		"victories":  sum.Victories,
		"wipes":      sum.Wipes,
		"escapes":    sum.Escapes,
		"avg_rounds": sum.AvgRounds,
		"elapsed":    sum.Elapsed.String(),
	}).Info("Simulation finished.")
	return sum, nil
}

// RunTrial играет одну встречу простой политикой: все живые герои бьют первого врага,
// затем ход врагов и новый раунд.
func RunTrial(cfg Config, cat *catalog.Catalog, sc Scenario, i int) Trial {
	seed := TrialSeed(cfg.Seed, i)
	tr := Trial{Index: i, Seed: seed}

	enc := engine.NewEncounter(fmt.Sprintf("%s_%d", sc.Name, i), engine.Config{
		Seed:        seed,
		AutoRerolls: cfg.AutoRerolls,
	})
	if _, err := actions.HandleStart(handlers.Context{Encounter: enc, Catalog: cat}, sc.Start); err != nil {
		tr.Err = err
		return tr
	}

	for enc.Round < cfg.MaxRounds && enc.Outcome == engine.OutcomeNone {
		if err := playRound(enc, sc); err != nil {
			tr.Err = err
			return tr
		}
	}

	tr.Outcome = enc.Outcome
	tr.Rounds = enc.Round
	for _, h := range enc.Heroes {
		if h.Status.Dead {
			tr.HeroDeaths++
		}
	}
	return tr
}

func playRound(enc *engine.Encounter, sc Scenario) error {
	// 1. Бегство до атак
	if sc.FleeBelow > 0 && len(enc.LivingHeroes()) < sc.FleeBelow {
		if _, err := enc.Flee(); err != nil {
			return err
		}
		if enc.Outcome != engine.OutcomeNone {
			return nil
		}
	}

	// 2. Атаки героев
	for _, h := range enc.LivingHeroes() {
		foes := enc.Foes()
		if len(foes) == 0 || enc.Outcome != engine.OutcomeNone {
			break
		}
		if _, err := enc.Attack(h.ID, foes[0].ID, engine.AttackOptions{}); err != nil {
			return fmt.Errorf("attack %s -> %s: %w", h.ID, foes[0].ID, err)
		}
	}
	if enc.Outcome != engine.OutcomeNone {
		return nil
	}

	// 3. Ход врагов и новый раунд
	if _, err := enc.MonsterTurn(false); err != nil {
		return err
	}
	if enc.Outcome != engine.OutcomeNone {
		return nil
	}
	_, err := enc.NewRound()
	return err
}
