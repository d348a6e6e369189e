package arena

import "testing"

// TestBusOrdering verifies listeners fire in registration order
func TestBusOrdering(t *testing.T) {
	bus := NewBus()

	var order []int
	for i := 0; i < 5; i++ {
		n := i
		bus.On(EventTickPre, func(Event) { order = append(order, n) })
	}

	bus.Emit(TickPreEvent{Dt: 0.033})

	if len(order) != 5 {
		t.Fatalf("expected 5 deliveries, got %d", len(order))
	}
	for i, n := range order {
		if n != i {
			t.Errorf("delivery %d went to listener %d", i, n)
		}
	}
}

// TestBusTypeIsolation verifies events only reach their own type's listeners
func TestBusTypeIsolation(t *testing.T) {
	bus := NewBus()

	pre, post := 0, 0
	bus.On(EventTickPre, func(Event) { pre++ })
	bus.On(EventTickPost, func(Event) { post++ })

	bus.Emit(TickPreEvent{})
	bus.Emit(TickPreEvent{})
	bus.Emit(TickPostEvent{})

	if pre != 2 || post != 1 {
		t.Errorf("pre=%d post=%d, want 2/1", pre, post)
	}
}

// TestBusPanicIsolation verifies a panicking listener does not block the rest
func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus()

	ran := false
	bus.On(EventPlayerDie, func(Event) { panic("boom") })
	bus.On(EventPlayerDie, func(Event) { ran = true })

	bus.Emit(PlayerDieEvent{PlayerID: "p1"})

	if !ran {
		t.Error("listener after panicking listener did not run")
	}
}

// TestBusOff verifies removal by subscription handle
func TestBusOff(t *testing.T) {
	bus := NewBus()

	count := 0
	sub := bus.On(EventPlayerJoin, func(Event) { count++ })
	bus.Emit(PlayerJoinEvent{PlayerID: "p1"})

	bus.Off(sub)
	bus.Emit(PlayerJoinEvent{PlayerID: "p1"})

	if count != 1 {
		t.Errorf("count = %d after Off, want 1", count)
	}

	// Removing twice is harmless.
	bus.Off(sub)
	if bus.ListenerCount(EventPlayerJoin) != 0 {
		t.Error("listener list should be empty")
	}
}
