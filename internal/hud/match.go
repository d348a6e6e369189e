package hud

import "event-arena/internal/arena"

// matchThrottleMs is the minimum gap between tick-driven match updates.
const matchThrottleMs = 300

// MatchState is the match widget payload.
type MatchState struct {
	ID       string `json:"id,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Phase    string `json:"phase"`
	StartsAt int64  `json:"startsAt,omitempty"`
	EndsAt   int64  `json:"endsAt,omitempty"`
}

// MatchWidget projects the current match phase. Match transitions always
// mark the widget dirty; tick-driven refreshes (countdown timers on clients)
// are throttled to one per 300 ms.
type MatchWidget struct {
	matches *arena.MatchManager

	lastTickUpdate int64
}

// NewMatchWidget creates the match widget.
func NewMatchWidget(matches *arena.MatchManager) *MatchWidget {
	return &MatchWidget{matches: matches}
}

// Key implements Widget.
func (w *MatchWidget) Key() string { return KeyMatch }

// OnEvent implements Widget.
func (w *MatchWidget) OnEvent(e arena.Event, now int64) bool {
	switch e.Type() {
	case arena.EventMatchCreated, arena.EventMatchStarted, arena.EventMatchEnded, arena.EventPlayerJoin:
		w.lastTickUpdate = now
		return true
	case arena.EventTickPost:
		if w.matches.Current() == nil {
			return false
		}
		if now-w.lastTickUpdate < matchThrottleMs {
			return false
		}
		w.lastTickUpdate = now
		return true
	}
	return false
}

// Snapshot implements Widget.
func (w *MatchWidget) Snapshot(now int64) UpdateMessage {
	state := MatchState{Phase: arena.PhaseIdle}
	if m := w.matches.Current(); m != nil {
		state = MatchState{
			ID:       m.ID,
			Mode:     m.Mode,
			Phase:    m.Phase,
			StartsAt: m.StartsAt,
			EndsAt:   m.EndsAt,
		}
	}
	return UpdateMessage{Type: "hud:match:update", Data: state}
}
