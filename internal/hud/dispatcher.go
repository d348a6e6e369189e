package hud

import (
	"time"

	"event-arena/internal/arena"
)

// flushDelay batches bursts of dirty widgets into one send.
const flushDelay = 30 * time.Millisecond

// Sender delivers a widget update to every connection subscribed to the
// widget's key. Implemented by the transport layer.
type Sender interface {
	SendToSubscribers(widgetKey string, msg UpdateMessage)
}

// Dispatcher is the single bus subscriber feeding all widgets. Each trigger
// event is offered to every widget; dirty keys are collected and flushed in
// a batch flushDelay later. Kill-feed and streak events flush immediately
// so announcements feel instant.
//
// All dispatcher state runs on the simulation loop.
type Dispatcher struct {
	engine  *arena.Engine
	sender  Sender
	widgets []Widget

	dirty          map[string]bool
	flushScheduled bool
}

// immediateTypes flush with no batching delay.
var immediateTypes = map[string]bool{
	arena.EventFeedEntry:     true,
	arena.EventStreakChanged: true,
}

// triggerTypes is the union of every widget's trigger set.
var triggerTypes = []string{
	arena.EventScoreUpdate,
	arena.EventPlayerJoin,
	arena.EventPlayerLeave,
	arena.EventPlayerDie,
	arena.EventMatchCreated,
	arena.EventMatchStarted,
	arena.EventMatchEnded,
	arena.EventFeedEntry,
	arena.EventStreakChanged,
	arena.EventTickPost,
}

// NewDispatcher builds the standard widget set and subscribes it to the bus.
func NewDispatcher(engine *arena.Engine, sender Sender) *Dispatcher {
	d := &Dispatcher{
		engine: engine,
		sender: sender,
		widgets: []Widget{
			NewScoreboardWidget(engine.World()),
			NewMatchWidget(engine.Match()),
			NewFeedWidget(),
			NewStreaksWidget(engine.World()),
			NewAnnouncementsWidget(),
		},
		dirty: make(map[string]bool),
	}

	engine.Bus().OnEach(triggerTypes, d.onEvent)
	return d
}

func (d *Dispatcher) onEvent(e arena.Event) {
	now := d.engine.NowMs()

	changed := false
	for _, w := range d.widgets {
		if w.OnEvent(e, now) {
			d.dirty[w.Key()] = true
			changed = true
		}
	}
	if !changed {
		return
	}

	if immediateTypes[e.Type()] {
		d.flush()
		return
	}
	if !d.flushScheduled {
		d.flushScheduled = true
		d.engine.Scheduler().After(d.engine.Now(), flushDelay, d.flush)
	}
}

// flush snapshots every dirty widget and hands the updates to the sender.
func (d *Dispatcher) flush() {
	d.flushScheduled = false
	if len(d.dirty) == 0 {
		return
	}

	now := d.engine.NowMs()
	for _, w := range d.widgets {
		if !d.dirty[w.Key()] {
			continue
		}
		d.sender.SendToSubscribers(w.Key(), w.Snapshot(now))
	}
	d.dirty = make(map[string]bool)
}

// SnapshotFor returns the current snapshot for one widget key, used for the
// initial push when a connection subscribes. Must run on the simulation loop.
func (d *Dispatcher) SnapshotFor(key string) (UpdateMessage, bool) {
	now := d.engine.NowMs()
	for _, w := range d.widgets {
		if w.Key() == key {
			return w.Snapshot(now), true
		}
	}
	return UpdateMessage{}, false
}
