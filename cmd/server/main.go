package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-arena/internal/api"
	"event-arena/internal/arena"
	"event-arena/internal/config"
	"event-arena/internal/journal"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 no .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  EVENT ARENA - GO SERVER")
	log.Println("🎮 ================================")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	engine := arena.NewEngine(cfg, arena.EngineOptions{})
	engine.OnTick = func(d time.Duration) {
		api.RecordTick(d)
		world := engine.World()
		api.UpdateWorldGauges(len(world.Players), len(world.Projectiles), len(world.Pickups))
	}

	// Journal subsystem; the sim never blocks on its disk writes.
	var journalSys *journal.System
	var journalStats api.JournalStats
	if cfg.Journal.Enabled {
		var err error
		journalSys, err = journal.NewSystem(engine, cfg.Journal)
		if err != nil {
			log.Fatalf("❌ journal init: %v", err)
		}
		journalStats = journalSys
	}

	server := api.NewServer(engine, journalStats, cfg.Server.StaticDir)

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		api.StartDebugServer(api.DefaultObservabilityConfig())
	}

	engine.Start()
	if journalSys != nil {
		journalSys.Start()
	}

	// A demo match keeps the arena warm for drop-in play.
	if cfg.Server.DemoMatches {
		engine.Do(func() {
			if _, err := engine.Match().CreateMatch("deathmatch"); err != nil {
				log.Printf("⚠️ demo match: %v", err)
			}
		})
	}

	bots := make([]*arena.Bot, 0, cfg.Server.Bots)
	for i := 0; i < cfg.Server.Bots; i++ {
		bots = append(bots, arena.NewBot(engine, fmt.Sprintf("bot-%02d", i+1)))
	}
	if len(bots) > 0 {
		log.Printf("🤖 %d bot(s) in the arena", len(bots))
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("🛑 received %v, shutting down", sig)
	case err := <-errChan:
		log.Printf("❌ server error: %v", err)
	}

	for _, b := range bots {
		b.Stop()
	}
	if journalSys != nil {
		journalSys.Stop()
	}
	engine.Stop()
	log.Println("👋 goodbye")
}
