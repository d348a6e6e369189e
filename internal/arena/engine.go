package arena

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"event-arena/internal/config"
)

// taskQueueSize bounds the command handoff queue between transport
// goroutines and the simulation loop.
const taskQueueSize = 1024

// Engine owns the world and every simulation system, and serializes all
// mutation onto a single loop goroutine. Transport and timers hand work in
// through Do; nothing touches the world from outside the loop.
type Engine struct {
	cfg config.AppConfig

	bus   *Bus
	world *World
	spawn *SpawnManager
	clock *Clock
	sched *Scheduler
	rng   *rand.Rand

	commands *CommandSystem
	movement *MovementSystem
	combat   *CombatSystem
	pickups  *PickupSystem
	match    *MatchManager

	tasks    chan func()
	stopChan chan struct{}
	mu       sync.Mutex
	running  bool
	wg       sync.WaitGroup

	nowFn func() time.Time

	// OnTick observes tick wall time for metrics; may be nil.
	OnTick func(time.Duration)
}

// EngineOptions tunes construction beyond the config.
type EngineOptions struct {
	Now  func() time.Time // Clock source; defaults to time.Now
	Seed int64            // RNG seed; 0 seeds from the clock
}

// NewEngine builds a stopped engine with the full system set wired onto the
// bus. Start launches the loop.
func NewEngine(cfg config.AppConfig, opts EngineOptions) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	seed := opts.Seed
	if seed == 0 {
		seed = now().UnixNano()
	}

	e := &Engine{
		cfg:      cfg,
		bus:      NewBus(),
		sched:    NewScheduler(),
		rng:      rand.New(rand.NewSource(seed)),
		tasks:    make(chan func(), taskQueueSize),
		stopChan: make(chan struct{}),
		nowFn:    now,
	}

	e.world = NewWorld(cfg.World.Width, cfg.World.Height)
	e.world.Obstacles = DefaultObstacles(cfg.World.Width, cfg.World.Height)
	e.spawn = NewSpawnManager(e.world, DefaultSpawnConfig(), e.rng)
	e.clock = NewClock(e.bus, cfg.Server.TickRate, e.execTick, now)

	// Registration order fixes handler order within a tick: the scheduler
	// drains first, then movement on tick:pre, then combat and pickups on
	// tick:post.
	e.bus.On(EventTickPre, func(ev Event) { e.sched.RunDue(e.Now()) })
	e.movement = NewMovementSystem(e)
	e.commands = NewCommandSystem(e)
	e.combat = NewCombatSystem(e)
	e.pickups = NewPickupSystem(e)
	e.match = NewMatchManager(e)

	return e
}

// Bus returns the simulation event bus.
func (e *Engine) Bus() *Bus { return e.bus }

// World returns the authoritative world state. Only loop code may mutate it.
func (e *Engine) World() *World { return e.world }

// Spawn returns the spawn manager.
func (e *Engine) Spawn() *SpawnManager { return e.spawn }

// Scheduler returns the deadline task queue.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Match returns the match manager.
func (e *Engine) Match() *MatchManager { return e.match }

// Rand returns the simulation RNG. Loop use only.
func (e *Engine) Rand() *rand.Rand { return e.rng }

// Now returns the engine's current time.
func (e *Engine) Now() time.Time { return e.nowFn() }

// NowMs returns the engine's current time in epoch milliseconds, the
// convention for all absolute timestamps in the simulation.
func (e *Engine) NowMs() int64 { return nowMs(e.nowFn()) }

// Start launches the loop goroutine and the clock. Idempotent.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run()
	e.clock.Start()

	log.Printf("🎮 engine started: %d Hz, world %.0fx%.0f, %d obstacles",
		e.cfg.Server.TickRate, e.world.Width, e.world.Height, len(e.world.Obstacles))
}

// Stop halts the clock and the loop. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.clock.Stop()
	close(e.stopChan)
	e.wg.Wait()
	log.Println("🛑 engine stopped")
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case fn := <-e.tasks:
			fn()
		case <-e.stopChan:
			// Drain whatever was queued so commands aren't lost on
			// shutdown, then exit.
			for {
				select {
				case fn := <-e.tasks:
					fn()
				default:
					return
				}
			}
		}
	}
}

// execTick runs a clock tick on the loop, timing it for the metrics hook.
func (e *Engine) execTick(fn func()) {
	e.Do(func() {
		start := e.nowFn()
		fn()
		if e.OnTick != nil {
			e.OnTick(e.nowFn().Sub(start))
		}
	})
}

// Do hands fn to the simulation loop. Safe from any goroutine. When the
// queue is full the task is dropped with a log line; slow producers must not
// stall the transport.
func (e *Engine) Do(fn func()) {
	select {
	case e.tasks <- fn:
	default:
		log.Printf("⚠️ simulation queue full, dropping task")
	}
}

// Emit hands an event emission to the simulation loop.
func (e *Engine) Emit(event Event) {
	e.Do(func() { e.bus.Emit(event) })
}

// StepTick runs one synchronous tick on the calling goroutine. Test use
// only: the engine must not be running.
func (e *Engine) StepTick() {
	start := e.Now()
	e.clock.Tick()
	if e.OnTick != nil {
		e.OnTick(e.Now().Sub(start))
	}
}
