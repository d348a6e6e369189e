package arena

import (
	"sync"
	"time"

	"event-arena/internal/config"
)

// fakeClock is a manually advanced time source for deterministic tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// testConfig builds a default configuration without env overrides.
func testConfig() config.AppConfig {
	return config.AppConfig{
		World:       config.DefaultWorld(),
		Player:      config.DefaultPlayer(),
		Projectiles: config.DefaultProjectiles(),
		Explosions:  config.DefaultExplosions(),
		Cooldowns:   config.DefaultCooldowns(),
		Buffs:       config.DefaultBuffs(),
		Combat:      config.DefaultCombat(),
		Pickups:     config.DefaultPickups(),
		Server:      config.DefaultServer(),
		Journal:     config.DefaultJournal(),
	}
}

// newTestEngine builds a stopped engine with a fake clock and an open arena
// (no obstacles) so geometry in tests is predictable. Events run on the
// calling goroutine via direct bus emits and StepTick.
func newTestEngine() (*Engine, *fakeClock) {
	clock := newFakeClock()
	e := NewEngine(testConfig(), EngineOptions{Now: clock.Now, Seed: 42})
	e.World().Obstacles = nil
	// Prime the clock so the first step carries its full dt.
	e.clock.prev = clock.Now()
	return e, clock
}

// recorder captures emitted events of the given types for assertions.
type recorder struct {
	events []Event
}

func record(bus *Bus, types ...string) *recorder {
	r := &recorder{}
	for _, t := range types {
		bus.On(t, func(e Event) { r.events = append(r.events, e) })
	}
	return r
}

func (r *recorder) ofType(eventType string) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) count(eventType string) int {
	return len(r.ofType(eventType))
}

func (r *recorder) reset() {
	r.events = nil
}

// join adds a player through the command path and returns its record.
func join(e *Engine, id, name string) *Player {
	e.Bus().Emit(JoinCmdEvent{PlayerID: id, Name: name})
	return e.World().Player(id)
}

// drainTasks runs everything queued on the loop channel synchronously, for
// tests that never start the loop goroutine.
func drainTasks(e *Engine) {
	for {
		select {
		case fn := <-e.tasks:
			fn()
		default:
			return
		}
	}
}

// step advances the fake clock and runs one synchronous tick.
func step(e *Engine, clock *fakeClock, d time.Duration) {
	clock.Advance(d)
	e.StepTick()
}
