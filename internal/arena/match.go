package arena

import (
	"fmt"
	"log"
	"time"
)

// Match phases.
const (
	PhaseIdle      = "idle"
	PhaseCountdown = "countdown"
	PhaseActive    = "active"
	PhaseEnded     = "ended"
)

// matchClearDelay is how long an ended match lingers before the slot clears.
const matchClearDelay = 10 * time.Second

// Match is the single current match record.
type Match struct {
	ID       string
	Mode     string
	Phase    string
	StartsAt int64 // epoch ms, countdown end
	EndsAt   int64 // epoch ms, 0 = untimed
	Players  map[string]bool
}

// MatchManager drives the idle→countdown→active→ended state machine for the
// single current match. All transitions run through the engine scheduler so
// they execute on the simulation loop.
type MatchManager struct {
	engine *Engine

	current  *Match
	matchSeq uint64

	// DemoMatches restarts a fresh match after each one clears.
	DemoMatches bool
	MatchTime   time.Duration
	Countdown   time.Duration
}

// NewMatchManager creates the match manager.
func NewMatchManager(engine *Engine) *MatchManager {
	mm := &MatchManager{
		engine:    engine,
		MatchTime: engine.cfg.Server.MatchTime,
		Countdown: engine.cfg.Server.CountdownMs,
	}
	mm.DemoMatches = engine.cfg.Server.DemoMatches

	engine.Bus().On(EventPlayerJoin, func(e Event) {
		if mm.current != nil {
			mm.current.Players[e.(PlayerJoinEvent).PlayerID] = true
		}
	})

	return mm
}

// Current returns the current match, or nil outside a match window.
func (mm *MatchManager) Current() *Match {
	return mm.current
}

// CreateMatch opens a new match in countdown. A second concurrent match is
// rejected.
func (mm *MatchManager) CreateMatch(mode string) (*Match, error) {
	if mm.current != nil && mm.current.Phase != PhaseEnded {
		return nil, fmt.Errorf("match %s still in phase %s", mm.current.ID, mm.current.Phase)
	}

	e := mm.engine
	mm.matchSeq++
	now := e.Now()

	match := &Match{
		ID:       fmt.Sprintf("match_%d", mm.matchSeq),
		Mode:     mode,
		Phase:    PhaseCountdown,
		StartsAt: nowMs(now) + mm.Countdown.Milliseconds(),
		Players:  make(map[string]bool),
	}
	for id := range e.World().Players {
		match.Players[id] = true
	}
	mm.current = match

	log.Printf("🏁 match %s created (%s), countdown %v", match.ID, mode, mm.Countdown)
	e.Bus().Emit(MatchCreatedEvent{
		MatchID:     match.ID,
		Mode:        match.Mode,
		CountdownMs: mm.Countdown.Milliseconds(),
	})

	e.Scheduler().After(now, mm.Countdown, func() { mm.start(match) })
	return match, nil
}

// start transitions countdown→active, resetting every player's match stats.
func (mm *MatchManager) start(match *Match) {
	if mm.current != match || match.Phase != PhaseCountdown {
		return
	}

	e := mm.engine
	now := e.Now()
	match.Phase = PhaseActive

	startMs := nowMs(now)
	for _, player := range e.World().Players {
		player.Stats = PlayerStats{MatchStartTime: startMs}
		e.Bus().Emit(ScoreUpdateEvent{PlayerID: player.ID})
	}

	if mm.MatchTime > 0 {
		match.EndsAt = startMs + mm.MatchTime.Milliseconds()
		e.Scheduler().After(now, mm.MatchTime, func() { mm.End(match.ID) })
	}

	log.Printf("▶️ match %s active", match.ID)
	e.Bus().Emit(MatchStartedEvent{MatchID: match.ID, EndsAt: match.EndsAt})
}

// End transitions the current match to ended, then clears the slot after a
// grace window and optionally spins up the next demo match.
func (mm *MatchManager) End(matchID string) {
	match := mm.current
	if match == nil || match.ID != matchID || match.Phase == PhaseEnded {
		return
	}

	e := mm.engine
	now := e.Now()
	match.Phase = PhaseEnded
	match.EndsAt = nowMs(now)

	log.Printf("🏆 match %s ended", match.ID)
	e.Bus().Emit(MatchEndedEvent{MatchID: match.ID, At: match.EndsAt})

	e.Scheduler().After(now, matchClearDelay, func() {
		if mm.current == match {
			mm.current = nil
			if mm.DemoMatches {
				if _, err := mm.CreateMatch(match.Mode); err != nil {
					log.Printf("⚠️ demo match restart failed: %v", err)
				}
			}
		}
	})
}
