// Command bots runs a headless arena full of AI players. Useful for load
// checks and for watching journal output without any connected client.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"event-arena/internal/arena"
	"event-arena/internal/config"
	"event-arena/internal/journal"
)

func main() {
	count := flag.Int("n", 6, "number of bots")
	duration := flag.Duration("for", 0, "exit after this long (0 = run until signal)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}

	engine := arena.NewEngine(cfg, arena.EngineOptions{})

	var journalSys *journal.System
	if cfg.Journal.Enabled {
		var err error
		journalSys, err = journal.NewSystem(engine, cfg.Journal)
		if err != nil {
			log.Fatalf("❌ journal init: %v", err)
		}
	}

	engine.Start()
	if journalSys != nil {
		journalSys.Start()
	}

	engine.Do(func() {
		if _, err := engine.Match().CreateMatch("deathmatch"); err != nil {
			log.Printf("⚠️ match: %v", err)
		}
	})

	bots := make([]*arena.Bot, 0, *count)
	for i := 0; i < *count; i++ {
		bots = append(bots, arena.NewBot(engine, fmt.Sprintf("bot-%02d", i+1)))
	}
	log.Printf("🤖 %d bots fighting", len(bots))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *duration > 0 {
		select {
		case <-time.After(*duration):
		case <-sigChan:
		}
	} else {
		<-sigChan
	}

	for _, b := range bots {
		b.Stop()
	}
	if journalSys != nil {
		journalSys.Stop()
	}
	engine.Stop()
}
