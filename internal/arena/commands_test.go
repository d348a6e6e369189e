package arena

import (
	"math"
	"testing"
	"time"
)

// TestJoinCreatesPlayer verifies cmd:join spawns a live player and announces it
func TestJoinCreatesPlayer(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventPlayerJoin)

	p := join(e, "p1", "Alice")
	if p == nil {
		t.Fatal("player not created")
	}
	if p.HP != 100 || p.IsDead {
		t.Errorf("hp=%d isDead=%v, want 100/false", p.HP, p.IsDead)
	}
	if p.Face != (Vec2{1, 0}) {
		t.Errorf("face = %v, want (1,0)", p.Face)
	}
	if rec.count(EventPlayerJoin) != 1 {
		t.Errorf("player:join count = %d", rec.count(EventPlayerJoin))
	}

	// A duplicate join for the same id is ignored.
	e.Bus().Emit(JoinCmdEvent{PlayerID: "p1", Name: "Alice"})
	if rec.count(EventPlayerJoin) != 1 {
		t.Error("duplicate join emitted another player:join")
	}
}

// TestLeaveIsDisconnect verifies cmd:leave removes the player without
// touching stats or emitting a death
func TestLeaveIsDisconnect(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventPlayerLeave, EventPlayerDie)

	join(e, "p1", "Alice")
	e.Bus().Emit(LeaveCmdEvent{PlayerID: "p1"})

	if e.World().Player("p1") != nil {
		t.Error("player still in world after leave")
	}
	if rec.count(EventPlayerLeave) != 1 {
		t.Errorf("player:leave count = %d", rec.count(EventPlayerLeave))
	}
	if rec.count(EventPlayerDie) != 0 {
		t.Error("leave emitted player:die")
	}
}

// TestMoveSetsVelocityAndDedups verifies direction normalization, haste
// scaling and the repeated-direction no-op
func TestMoveSetsVelocityAndDedups(t *testing.T) {
	e, _ := newTestEngine()
	p := join(e, "p1", "Alice")

	e.Bus().Emit(MoveCmdEvent{PlayerID: "p1", Dir: Vec2{3, 4}})
	speed := e.cfg.Player.Speed
	if math.Abs(p.Vel.Len()-speed) > 1e-9 {
		t.Errorf("speed = %.2f, want %.2f", p.Vel.Len(), speed)
	}

	// Same direction again: no-op even if velocity was changed meanwhile.
	p.Vel = Vec2{}
	e.Bus().Emit(MoveCmdEvent{PlayerID: "p1", Dir: Vec2{3, 4}})
	if !p.Vel.IsZero() {
		t.Error("repeated identical direction was not deduped")
	}

	// Zero direction stops.
	e.Bus().Emit(MoveCmdEvent{PlayerID: "p1", Dir: Vec2{}})
	if !p.Vel.IsZero() {
		t.Errorf("vel = %v after zero dir", p.Vel)
	}

	// Haste scales the applied speed.
	p.HasteUntil = e.NowMs() + 5000
	p.HasteFactor = 1.6
	e.Bus().Emit(MoveCmdEvent{PlayerID: "p1", Dir: Vec2{1, 0}})
	if math.Abs(p.Vel.Len()-speed*1.6) > 1e-9 {
		t.Errorf("hasted speed = %.2f, want %.2f", p.Vel.Len(), speed*1.6)
	}
}

// TestAimEmitsImmediately verifies cmd:aim echoes the target while the
// authoritative face lags behind
func TestAimEmitsImmediately(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventPlayerAimed)
	p := join(e, "p1", "Alice")

	e.Bus().Emit(AimCmdEvent{PlayerID: "p1", Dir: Vec2{0, 5}})

	if rec.count(EventPlayerAimed) != 1 {
		t.Fatalf("player:aimed count = %d", rec.count(EventPlayerAimed))
	}
	aimed := rec.ofType(EventPlayerAimed)[0].(PlayerAimedEvent)
	if aimed.Dir != (Vec2{0, 1}) {
		t.Errorf("aimed dir = %v, want unit (0,1)", aimed.Dir)
	}
	if p.Face == (Vec2{0, 1}) {
		t.Error("face snapped instantly; should rotate during integration")
	}
	if p.FaceTarget != (Vec2{0, 1}) {
		t.Errorf("faceTarget = %v", p.FaceTarget)
	}
}

// TestCastCooldowns verifies a second cast inside the cooldown is dropped
func TestCastCooldowns(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(), EventProjectileSpawned)
	join(e, "p1", "Alice")

	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillShoot})
	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillShoot})
	if rec.count(EventProjectileSpawned) != 1 {
		t.Fatalf("spawned %d projectiles inside cooldown, want 1", rec.count(EventProjectileSpawned))
	}

	clock.Advance(e.cfg.Cooldowns.Shoot + time.Millisecond)
	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillShoot})
	if rec.count(EventProjectileSpawned) != 2 {
		t.Errorf("cast after cooldown did not fire")
	}
}

// TestShotgunSpread verifies pellet count and even spread around the facing
func TestShotgunSpread(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventProjectileSpawned)
	join(e, "p1", "Alice")

	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillShotgun})

	pellets := rec.ofType(EventProjectileSpawned)
	if len(pellets) != e.cfg.Projectiles.Pellet.Count {
		t.Fatalf("pellet count = %d, want %d", len(pellets), e.cfg.Projectiles.Pellet.Count)
	}

	spread := e.cfg.Projectiles.Pellet.Spread
	first := pellets[0].(ProjectileSpawnedEvent).Vel.Angle()
	last := pellets[len(pellets)-1].(ProjectileSpawnedEvent).Vel.Angle()
	if math.Abs(first-(-spread)) > 1e-9 || math.Abs(last-spread) > 1e-9 {
		t.Errorf("spread edges = %.3f..%.3f, want ±%.3f", first, last, spread)
	}
}

// TestDashSetsWindowAndIframes verifies skill:dash opens the dash and
// i-frame windows together
func TestDashSetsWindowAndIframes(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventDashStarted)
	p := join(e, "p1", "Alice")
	now := e.NowMs()

	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillDash})

	wantUntil := now + e.cfg.Combat.DashDuration.Milliseconds()
	if p.DashUntil != wantUntil || p.IframeUntil != wantUntil {
		t.Errorf("dashUntil=%d iframeUntil=%d, want %d", p.DashUntil, p.IframeUntil, wantUntil)
	}
	if p.DashFactor != e.cfg.Combat.DashFactor {
		t.Errorf("dashFactor = %.1f", p.DashFactor)
	}
	started := rec.ofType(EventDashStarted)[0].(DashStartedEvent)
	if !started.IFrames || started.Duration != e.cfg.Combat.DashDuration.Milliseconds() {
		t.Errorf("dash:started payload = %+v", started)
	}
}

// TestDeadPlayersDropCommands verifies move/aim/cast are ignored while dead
func TestDeadPlayersDropCommands(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventProjectileSpawned, EventPlayerAimed)
	p := join(e, "p1", "Alice")
	p.IsDead = true

	e.Bus().Emit(MoveCmdEvent{PlayerID: "p1", Dir: Vec2{1, 0}})
	e.Bus().Emit(AimCmdEvent{PlayerID: "p1", Dir: Vec2{0, 1}})
	e.Bus().Emit(CastCmdEvent{PlayerID: "p1", Skill: SkillShoot})

	if !p.Vel.IsZero() || len(rec.events) != 0 {
		t.Error("dead player acted on commands")
	}
}

// TestRespawnHonorsTimerAndPreservesStats verifies the respawn gate and
// state reset
func TestRespawnHonorsTimerAndPreservesStats(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(), EventPlayerJoin)
	p := join(e, "p1", "Alice")
	rec.reset()

	p.Stats.Kills = 3
	p.IsDead = true
	p.HP = 0
	p.DeadUntil = e.NowMs() + 5000
	p.ShieldUntil = e.NowMs() + 9999

	// Too early: dropped.
	e.Bus().Emit(RespawnCmdEvent{PlayerID: "p1"})
	if !p.IsDead {
		t.Fatal("respawned before timer")
	}

	clock.Advance(5001 * time.Millisecond)
	e.Bus().Emit(RespawnCmdEvent{PlayerID: "p1"})

	if p.IsDead || p.HP != 100 {
		t.Errorf("isDead=%v hp=%d after respawn", p.IsDead, p.HP)
	}
	if p.ShieldUntil != 0 || len(p.Cooldowns) != 0 {
		t.Error("timed effects or cooldowns survived respawn")
	}
	if p.Stats.Kills != 3 {
		t.Error("match stats were reset on respawn")
	}
	if rec.count(EventPlayerJoin) != 1 {
		t.Error("respawn did not re-signal presence via player:join")
	}
}
