package hud

import "event-arena/internal/arena"

// StreaksWidget projects every player's current kill streak.
type StreaksWidget struct {
	world *arena.World
}

// NewStreaksWidget creates the streaks widget over the world.
func NewStreaksWidget(world *arena.World) *StreaksWidget {
	return &StreaksWidget{world: world}
}

// Key implements Widget.
func (w *StreaksWidget) Key() string { return KeyStreaks }

// OnEvent implements Widget.
func (w *StreaksWidget) OnEvent(e arena.Event, now int64) bool {
	switch e.Type() {
	case arena.EventStreakChanged, arena.EventPlayerJoin, arena.EventPlayerLeave:
		return true
	}
	return false
}

// Snapshot implements Widget.
func (w *StreaksWidget) Snapshot(now int64) UpdateMessage {
	streaks := make(map[string]int, len(w.world.Players))
	for id, p := range w.world.Players {
		streaks[id] = p.Stats.CurrentStreak
	}
	return UpdateMessage{Type: "hud:streaks:update", Data: streaks}
}
