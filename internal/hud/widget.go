// Package hud projects simulation state into per-widget snapshots pushed to
// subscribed connections. Widgets are pure views: they own at most a short
// TTL buffer and never mutate the world.
package hud

import "event-arena/internal/arena"

// Widget keys clients may subscribe to.
const (
	KeyScoreboard    = "scoreboard"
	KeyMatch         = "match"
	KeyFeed          = "feed"
	KeyStreaks       = "streaks"
	KeyAnnouncements = "announcements"
)

// AllowedKeys is the closed set of valid widget keys.
var AllowedKeys = map[string]bool{
	KeyScoreboard:    true,
	KeyMatch:         true,
	KeyFeed:          true,
	KeyStreaks:       true,
	KeyAnnouncements: true,
}

// UpdateMessage is one widget snapshot ready for the wire.
type UpdateMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Widget is a named server-side projection.
//
// Snapshot produces the current update message from world state and the
// widget's local buffer. OnEvent reports whether the widget's output may
// have changed; the dispatcher collects dirty widgets and flushes them in a
// batch.
type Widget interface {
	Key() string
	Snapshot(now int64) UpdateMessage
	OnEvent(e arena.Event, now int64) bool
}
