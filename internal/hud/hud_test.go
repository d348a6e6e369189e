package hud

import (
	"testing"
	"time"

	"event-arena/internal/arena"
	"event-arena/internal/config"
)

func testWorld() *arena.World {
	w := arena.NewWorld(2000, 1200)
	return w
}

func addPlayer(w *arena.World, id, name string, kills, deaths int) *arena.Player {
	p := arena.NewPlayer(id, name, arena.Vec2{X: 100, Y: 100}, 100)
	p.Stats.Kills = kills
	p.Stats.Deaths = deaths
	w.AddPlayer(p)
	return p
}

// TestScoreboardSorting verifies kills desc, deaths asc, name asc
func TestScoreboardSorting(t *testing.T) {
	w := testWorld()
	addPlayer(w, "a", "Zoe", 2, 0)
	addPlayer(w, "b", "Amy", 2, 3)
	addPlayer(w, "c", "Bob", 5, 1)
	addPlayer(w, "d", "Ann", 2, 0)

	widget := NewScoreboardWidget(w)
	msg := widget.Snapshot(0)
	rows := msg.Data.([]ScoreboardRow)

	wantOrder := []string{"Bob", "Ann", "Zoe", "Amy"}
	for i, name := range wantOrder {
		if rows[i].Name != name {
			t.Fatalf("row %d = %s, want %s (full: %+v)", i, rows[i].Name, name, rows)
		}
	}
	if msg.Type != "hud:scoreboard:update" {
		t.Errorf("type = %s", msg.Type)
	}
}

// TestScoreboardTriggers verifies the widget's dirty conditions
func TestScoreboardTriggers(t *testing.T) {
	widget := NewScoreboardWidget(testWorld())

	tests := []struct {
		name string
		e    arena.Event
		want bool
	}{
		{"score update", arena.ScoreUpdateEvent{}, true},
		{"join", arena.PlayerJoinEvent{}, true},
		{"die", arena.PlayerDieEvent{}, true},
		{"move is ignored", arena.PlayerMoveEvent{}, false},
		{"tick is ignored", arena.TickPostEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := widget.OnEvent(tt.e, 0); got != tt.want {
				t.Errorf("OnEvent = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestFeedRingAndTTL verifies the 8-item ring and the 10 s expiry
func TestFeedRingAndTTL(t *testing.T) {
	widget := NewFeedWidget()

	for i := 0; i < 10; i++ {
		if !widget.OnEvent(arena.FeedEntryEvent{KillerID: "k", VictimID: "v", Weapon: "bullet", Timestamp: int64(i)}, int64(i)) {
			t.Fatal("feed entry did not dirty the widget")
		}
	}

	items := widget.Snapshot(10).Data.([]FeedItem)
	if len(items) != 8 {
		t.Fatalf("ring holds %d items, want 8", len(items))
	}
	if items[0].Timestamp != 2 {
		t.Errorf("oldest surviving item ts = %d, want 2", items[0].Timestamp)
	}

	// Expiry on tick only dirties when something actually drops.
	if widget.OnEvent(arena.TickPostEvent{}, 5_000) {
		t.Error("tick dirtied feed with nothing expired")
	}
	if !widget.OnEvent(arena.TickPostEvent{}, 10_005) {
		t.Error("tick did not dirty feed when items expired")
	}
	if n := len(widget.Snapshot(10_005).Data.([]FeedItem)); n != 4 {
		t.Errorf("items after expiry = %d, want 4", n)
	}
}

// TestAnnouncementThresholds verifies category selection on crossings
func TestAnnouncementThresholds(t *testing.T) {
	tests := []struct {
		name     string
		previous int
		current  int
		want     string
		wantOK   bool
	}{
		{"1 to 2 double kill", 1, 2, "double_kill", true},
		{"2 to 3 killing spree", 2, 3, "killing_spree", true},
		{"4 to 5 rampage", 4, 5, "rampage", true},
		{"6 to 7 unstoppable", 6, 7, "unstoppable", true},
		{"9 to 10 legendary", 9, 10, "legendary", true},
		{"0 to 1 nothing", 0, 1, "", false},
		{"3 to 4 nothing", 3, 4, "", false},
		{"jump 0 to 5 takes highest", 0, 5, "rampage", true},
		{"reset is silent", 5, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := crossedCategory(tt.previous, tt.current)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("crossedCategory(%d, %d) = %q/%v", tt.previous, tt.current, got, ok)
			}
		})
	}
}

// TestAnnouncementsBuffer verifies the 5-item ring and 3 s TTL
func TestAnnouncementsBuffer(t *testing.T) {
	widget := NewAnnouncementsWidget()

	for i := 0; i < 7; i++ {
		widget.OnEvent(arena.StreakChangedEvent{PlayerID: "p", PreviousStreak: 1, Streak: 2}, int64(i))
	}
	items := widget.Snapshot(6).Data.([]Announcement)
	if len(items) != 5 {
		t.Fatalf("buffer = %d items, want 5", len(items))
	}

	// Items stamped 2..6 remain; at 3003 ms the ones stamped 2 and 3 are
	// 3 s old and drop.
	if !widget.OnEvent(arena.TickPostEvent{}, 3_003) {
		t.Error("expiry did not dirty the widget")
	}
	if n := len(widget.Snapshot(3_003).Data.([]Announcement)); n != 3 {
		t.Errorf("items after expiry = %d, want 3", n)
	}
}

// TestMatchWidgetThrottle verifies immediate transitions and 300 ms tick
// throttling
func TestMatchWidgetThrottle(t *testing.T) {
	cfg := config.AppConfig{
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
	engine := arena.NewEngine(cfg, arena.EngineOptions{Seed: 1})
	widget := NewMatchWidget(engine.Match())

	// Transitions are always dirty.
	if !widget.OnEvent(arena.MatchCreatedEvent{MatchID: "m1"}, 1_000) {
		t.Error("match:created not dirty")
	}

	// No current match: ticks never dirty.
	if widget.OnEvent(arena.TickPostEvent{}, 1_400) {
		t.Error("tick dirtied with no match")
	}

	if _, err := engine.Match().CreateMatch("deathmatch"); err != nil {
		t.Fatal(err)
	}

	widget.OnEvent(arena.MatchCreatedEvent{MatchID: "m2"}, 2_000)
	if widget.OnEvent(arena.TickPostEvent{}, 2_100) {
		t.Error("tick inside throttle window dirtied")
	}
	if !widget.OnEvent(arena.TickPostEvent{}, 2_400) {
		t.Error("tick past throttle window not dirty")
	}

	snap := widget.Snapshot(2_400)
	state := snap.Data.(MatchState)
	if state.Phase != arena.PhaseCountdown {
		t.Errorf("phase = %s", state.Phase)
	}
}

// fakeSender records widget updates handed to the transport.
type fakeSender struct {
	sent []string // widget keys in send order
}

func (f *fakeSender) SendToSubscribers(key string, msg UpdateMessage) {
	f.sent = append(f.sent, key)
}

// TestDispatcherImmediateFlush verifies feed:entry and streak:changed skip
// the batching delay
func TestDispatcherImmediateFlush(t *testing.T) {
	engine := arena.NewEngine(config.Load(), arena.EngineOptions{Seed: 1})
	sender := &fakeSender{}
	NewDispatcher(engine, sender)

	engine.Bus().Emit(arena.FeedEntryEvent{KillerID: "k", VictimID: "v", Weapon: "bullet", Timestamp: 1})

	found := false
	for _, key := range sender.sent {
		if key == KeyFeed {
			found = true
		}
	}
	if !found {
		t.Errorf("feed update not flushed immediately, sent=%v", sender.sent)
	}
}

// TestDispatcherBatchedFlush verifies ordinary triggers wait for the
// scheduled flush
func TestDispatcherBatchedFlush(t *testing.T) {
	engine := arena.NewEngine(config.Load(), arena.EngineOptions{Seed: 1})
	sender := &fakeSender{}
	NewDispatcher(engine, sender)

	engine.Bus().Emit(arena.ScoreUpdateEvent{PlayerID: "p1"})
	if len(sender.sent) != 0 {
		t.Fatalf("score update flushed without delay: %v", sender.sent)
	}

	// The flush task sits on the scheduler; drain it past its deadline.
	engine.Scheduler().RunDue(engine.Now().Add(time.Second))
	found := false
	for _, key := range sender.sent {
		if key == KeyScoreboard {
			found = true
		}
	}
	if !found {
		t.Errorf("scoreboard not flushed after delay, sent=%v", sender.sent)
	}
}

// TestSnapshotFor verifies the initial-subscribe lookup
func TestSnapshotFor(t *testing.T) {
	engine := arena.NewEngine(config.Load(), arena.EngineOptions{Seed: 1})
	d := NewDispatcher(engine, &fakeSender{})

	for key := range AllowedKeys {
		if _, ok := d.SnapshotFor(key); !ok {
			t.Errorf("no snapshot for %s", key)
		}
	}
	if _, ok := d.SnapshotFor("bogus"); ok {
		t.Error("snapshot for unknown key")
	}
}

// TestStreaksSnapshot verifies the per-player streak map
func TestStreaksSnapshot(t *testing.T) {
	w := testWorld()
	addPlayer(w, "a", "Amy", 0, 0).Stats.CurrentStreak = 4
	addPlayer(w, "b", "Bob", 0, 0)

	widget := NewStreaksWidget(w)
	streaks := widget.Snapshot(0).Data.(map[string]int)

	if streaks["a"] != 4 || streaks["b"] != 0 {
		t.Errorf("streaks = %v", streaks)
	}
}
