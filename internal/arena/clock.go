package arena

import (
	"log"
	"time"
)

// MaxTickDelta caps dt so a stalled process resumes with one normal-sized
// step instead of a catch-up burst.
const MaxTickDelta = 100 * time.Millisecond

// Clock drives the fixed-rate simulation step. Each tick it computes a
// clamped dt and emits tick:pre then tick:post with the same value. Ticks are
// executed through the exec callback so they run on the simulation loop
// regardless of which goroutine owns the ticker.
type Clock struct {
	bus      *Bus
	tickRate int
	exec     func(func())
	now      func() time.Time

	ticker   *time.Ticker
	stopChan chan struct{}
	running  bool
	prev     time.Time
}

// NewClock creates a clock emitting at tickRate Hz onto the bus.
func NewClock(bus *Bus, tickRate int, exec func(func()), now func() time.Time) *Clock {
	return &Clock{
		bus:      bus,
		tickRate: tickRate,
		exec:     exec,
		now:      now,
	}
}

// Start begins emitting ticks. Calling Start on a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.prev = c.now()
	c.ticker = time.NewTicker(time.Second / time.Duration(c.tickRate))
	c.stopChan = make(chan struct{})

	go func() {
		for {
			select {
			case <-c.ticker.C:
				c.exec(c.Tick)
			case <-c.stopChan:
				return
			}
		}
	}()

	log.Printf("⏱️ clock started at %d Hz", c.tickRate)
}

// Stop halts future ticks. Safe to call repeatedly.
func (c *Clock) Stop() {
	if !c.running {
		return
	}
	c.running = false
	c.ticker.Stop()
	close(c.stopChan)
}

// Tick performs one simulation step: computes dt from the previous tick,
// clamps it, and emits tick:pre then tick:post. Exposed so tests and the
// loop can step deterministically.
func (c *Clock) Tick() {
	now := c.now()
	if c.prev.IsZero() {
		c.prev = now
	}

	elapsed := now.Sub(c.prev)
	if elapsed > MaxTickDelta {
		elapsed = MaxTickDelta
	}
	c.prev = now

	dt := elapsed.Seconds()
	c.bus.Emit(TickPreEvent{Dt: dt})
	c.bus.Emit(TickPostEvent{Dt: dt})
}
