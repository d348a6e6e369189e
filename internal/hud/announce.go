package hud

import "event-arena/internal/arena"

const (
	announceMaxItems = 5
	announceTTLMs    = 3_000
)

// streakThreshold maps a streak milestone to its announcement category.
type streakThreshold struct {
	Streak   int
	Category string
}

// Ordered low to high; the highest newly-crossed category wins.
var streakThresholds = []streakThreshold{
	{2, "double_kill"},
	{3, "killing_spree"},
	{5, "rampage"},
	{7, "unstoppable"},
	{10, "legendary"},
}

// Announcement is one streak milestone callout.
type Announcement struct {
	PlayerID  string `json:"playerId"`
	Category  string `json:"category"`
	Streak    int    `json:"streak"`
	Timestamp int64  `json:"timestamp"`
}

// AnnouncementsWidget buffers streak milestone callouts with a short TTL.
// An item is appended only when a streak crosses a threshold; rising from 4
// to 5 announces rampage even though 5 skips no intermediate step.
type AnnouncementsWidget struct {
	items []Announcement
}

// NewAnnouncementsWidget creates an empty announcements widget.
func NewAnnouncementsWidget() *AnnouncementsWidget {
	return &AnnouncementsWidget{}
}

// Key implements Widget.
func (w *AnnouncementsWidget) Key() string { return KeyAnnouncements }

// OnEvent implements Widget.
func (w *AnnouncementsWidget) OnEvent(e arena.Event, now int64) bool {
	switch ev := e.(type) {
	case arena.StreakChangedEvent:
		category, ok := crossedCategory(ev.PreviousStreak, ev.Streak)
		if !ok {
			return false
		}
		w.items = append(w.items, Announcement{
			PlayerID:  ev.PlayerID,
			Category:  category,
			Streak:    ev.Streak,
			Timestamp: now,
		})
		if len(w.items) > announceMaxItems {
			w.items = w.items[len(w.items)-announceMaxItems:]
		}
		return true
	case arena.TickPostEvent:
		return w.expire(now)
	}
	return false
}

// crossedCategory returns the highest category whose threshold lies in
// (previous, current].
func crossedCategory(previous, current int) (string, bool) {
	category := ""
	for _, th := range streakThresholds {
		if previous < th.Streak && current >= th.Streak {
			category = th.Category
		}
	}
	return category, category != ""
}

func (w *AnnouncementsWidget) expire(now int64) bool {
	n := 0
	for _, item := range w.items {
		if now-item.Timestamp < announceTTLMs {
			w.items[n] = item
			n++
		}
	}
	changed := n != len(w.items)
	w.items = w.items[:n]
	return changed
}

// Snapshot implements Widget.
func (w *AnnouncementsWidget) Snapshot(now int64) UpdateMessage {
	items := make([]Announcement, len(w.items))
	copy(items, w.items)
	return UpdateMessage{Type: "hud:announce:update", Data: items}
}
