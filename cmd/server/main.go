package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fourad-server/internal/catalog"
	"fourad-server/internal/engine"
	"fourad-server/internal/infrastructure/storage"
	"fourad-server/internal/server"
	"fourad-server/internal/version"
	"fourad-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Конфигурация: окружение, поверх него флаги
	engineCfg, err := engine.LoadConfig()
	if err != nil {
		logger.Log.Fatal(err)
	}
	srvCfg, err := server.LoadConfig()
	if err != nil {
		logger.Log.Fatal(err)
	}

	var seed uint
	var replayPath, catalogPath string
	// Читаем флаг -seed. По умолчанию 0 (значит зерно из окружения или случайное на каждую сессию).
	flag.UintVar(&seed, "seed", 0, "Encounter seed for every session (0 for random)")
	flag.StringVar(&replayPath, "replay", "", "Path to .ddrp replay file to verify")
	flag.StringVar(&catalogPath, "catalog", "", "Path to catalog JSON (empty for built-in)")
	flag.StringVar(&srvCfg.Port, "port", srvCfg.Port, "HTTP port")
	flag.StringVar(&srvCfg.ReplayDir, "replay-dir", srvCfg.ReplayDir, "Directory for session replays")
	flag.BoolVar(&srvCfg.Debug, "debug", srvCfg.Debug, "Enable /debug routes and ADMIN_* commands")
	flag.Parse()

	logger.Log.Info("Starting Four Against Darkness server...")
	logger.Log.Info(version.String())

	cat, err := loadCatalog(catalogPath)
	if err != nil {
		logger.Log.Fatal("Failed to load catalog: ", err)
	}

	// РЕЖИМ РЕПЛЕЯ
	if replayPath != "" {
		logger.Log.Info("Mode: replay verification")
		res, err := server.PlaybackFile(replayPath, cat, engineCfg)
		if err != nil {
			logger.Log.Fatal("Failed to play replay: ", err)
		}
		if !res.Match() {
			logger.Log.Errorf("Replay diverged at %s", res.Divergence)
			os.Exit(1)
		}
		logger.Log.Infof("Replay verified: %d actions, %d rolls, outcome %q", res.Actions, res.Replayed, res.Outcome)
		return
	}

	// Без явного зерна каждая сессия получит свое при открытии
	switch {
	case seed != 0:
		engineCfg.Seed = uint32(seed)
		logger.Log.Infof("Using explicit seed: %d", engineCfg.Seed)
	case os.Getenv("ENCOUNTER_SEED") != "":
		logger.Log.Infof("Using seed from environment: %d", engineCfg.Seed)
	default:
		engineCfg.Seed = 0
		logger.Log.Info("Using random seed per session")
	}

	replays, err := storage.NewReplayService(srvCfg.ReplayDir)
	if err != nil {
		logger.Log.Fatal(err)
	}

	// 2. Запуск сервера
	srv := server.New(srvCfg, engineCfg, cat, replays)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error: ", err)
		}
	}()

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Log.Info("Shutting down...")

	// Сессии сохраняют реплеи при остановке
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Shutdown incomplete.")
	}

	logger.Log.Info("Done.")
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
