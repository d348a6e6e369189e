package hud

import "event-arena/internal/arena"

const (
	feedMaxItems = 8
	feedTTLMs    = 10_000
)

// FeedItem is one kill-feed line with its expiry.
type FeedItem struct {
	KillerID  string   `json:"killer"`
	VictimID  string   `json:"victim"`
	Weapon    string   `json:"weapon"`
	AssistIDs []string `json:"assistIds,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// FeedWidget keeps a ring of recent kill-feed entries with a 10 s TTL.
type FeedWidget struct {
	items []FeedItem
}

// NewFeedWidget creates an empty feed.
func NewFeedWidget() *FeedWidget {
	return &FeedWidget{}
}

// Key implements Widget.
func (w *FeedWidget) Key() string { return KeyFeed }

// OnEvent implements Widget.
func (w *FeedWidget) OnEvent(e arena.Event, now int64) bool {
	switch ev := e.(type) {
	case arena.FeedEntryEvent:
		w.items = append(w.items, FeedItem{
			KillerID:  ev.KillerID,
			VictimID:  ev.VictimID,
			Weapon:    ev.Weapon,
			AssistIDs: ev.AssistIDs,
			Timestamp: ev.Timestamp,
		})
		if len(w.items) > feedMaxItems {
			w.items = w.items[len(w.items)-feedMaxItems:]
		}
		return true
	case arena.TickPostEvent:
		// Dirty only when expiry actually changes the buffer.
		return w.expire(now)
	}
	return false
}

// expire drops items past their TTL, reporting whether anything changed.
func (w *FeedWidget) expire(now int64) bool {
	n := 0
	for _, item := range w.items {
		if now-item.Timestamp < feedTTLMs {
			w.items[n] = item
			n++
		}
	}
	changed := n != len(w.items)
	w.items = w.items[:n]
	return changed
}

// Snapshot implements Widget.
func (w *FeedWidget) Snapshot(now int64) UpdateMessage {
	items := make([]FeedItem, len(w.items))
	copy(items, w.items)
	return UpdateMessage{Type: "hud:feed:update", Data: items}
}
