package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fourad-server/internal/agent"
	"fourad-server/pkg/api"
	"fourad-server/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	var (
		url      string
		template string
		count    int
		location string
		games    int
	)
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "Server websocket URL")
	flag.StringVar(&template, "monster", "goblins", "Monster template key")
	flag.IntVar(&count, "count", 0, "Minor group size (0 = roll)")
	flag.StringVar(&location, "location", "room", "room | corridor")
	flag.IntVar(&games, "games", 1, "Encounters to play, one connection each")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := api.StartPayload{
		Monsters: []api.MonsterSpec{{Template: template, Count: count}},
		Location: location,
	}
	if err := start.Validate(); err != nil {
		logger.Log.Fatal(err)
	}

	for i := 0; i < games && ctx.Err() == nil; i++ {
		bot, err := agent.Dial(ctx, url, start)
		if err != nil {
			logger.Log.Fatal(err)
		}
		res, err := bot.Run(ctx)
		_ = bot.Close()
		if err != nil {
			logger.Log.WithError(err).Error("Bot game failed.")
			continue
		}
		fmt.Printf("%s outcome=%s rounds=%d commands=%d rejected=%d\n",
			res.SessionID, res.Outcome, res.Rounds, res.Commands, res.Rejected)
	}
}
