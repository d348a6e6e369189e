package arena

import (
	"testing"
	"time"
)

// TestDirectHitConsumesProjectile verifies hit detection and shot accounting
func TestDirectHitConsumesProjectile(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(), EventDamageApplied, EventProjectileDespawned)

	shooter := join(e, "p1", "Alice")
	victim := join(e, "p2", "Bob")
	victim.Pos = Vec2{400, 400}

	proj := &Projectile{
		ID: "b1", OwnerID: "p1", Kind: KindBullet,
		Pos: Vec2{401, 400}, Vel: Vec2{},
		HitRadius: 22, Damage: 25, Lifetime: 5000, SpawnTime: e.NowMs(),
	}
	e.World().AddProjectile(proj)

	step(e, clock, 33*time.Millisecond)

	if rec.count(EventDamageApplied) != 1 {
		t.Fatalf("damage count = %d, want 1", rec.count(EventDamageApplied))
	}
	dmg := rec.ofType(EventDamageApplied)[0].(DamageAppliedEvent)
	if dmg.TargetID != "p2" || dmg.SourceID != "p1" || dmg.Weapon != "bullet" {
		t.Errorf("damage payload = %+v", dmg)
	}
	if victim.HP != 75 {
		t.Errorf("victim hp = %d, want 75", victim.HP)
	}
	if shooter.Stats.ShotsHit != 1 {
		t.Errorf("shooter shotsHit = %d", shooter.Stats.ShotsHit)
	}
	if e.World().Projectiles["b1"] != nil {
		t.Error("projectile not consumed")
	}
}

// TestOwnerImmuneToOwnProjectile verifies projectiles pass through their owner
func TestOwnerImmuneToOwnProjectile(t *testing.T) {
	e, clock := newTestEngine()
	owner := join(e, "p1", "Alice")
	owner.Pos = Vec2{400, 400}

	proj := &Projectile{
		ID: "b1", OwnerID: "p1", Kind: KindBullet,
		Pos: owner.Pos, Vel: Vec2{},
		HitRadius: 22, Damage: 25, Lifetime: 5000, SpawnTime: e.NowMs(),
	}
	e.World().AddProjectile(proj)

	step(e, clock, 33*time.Millisecond)

	if owner.HP != 100 {
		t.Errorf("owner took own-projectile damage, hp=%d", owner.HP)
	}
}

// TestShieldCeilRounding verifies shielded damage 1 still lands as 1
func TestShieldCeilRounding(t *testing.T) {
	e, _ := newTestEngine()
	victim := join(e, "p2", "Bob")
	victim.ShieldUntil = e.NowMs() + 5000

	e.Bus().Emit(DamageAppliedEvent{TargetID: "p2", Amount: 1, SourceID: "p1", Weapon: "bullet"})

	if victim.HP != 99 {
		t.Errorf("hp = %d, want 99 (ceil(1*0.5)=1)", victim.HP)
	}
}

// TestShieldHalvesDamage verifies the shield reduction path
func TestShieldHalvesDamage(t *testing.T) {
	e, _ := newTestEngine()
	join(e, "p1", "Alice")
	victim := join(e, "p2", "Bob")
	victim.ShieldUntil = e.NowMs() + 5000

	e.Bus().Emit(DamageAppliedEvent{TargetID: "p2", Amount: 25, SourceID: "p1", Weapon: "bullet"})

	if victim.HP != 87 {
		t.Errorf("hp = %d, want 87 (ceil(25*0.5)=13)", victim.HP)
	}
}

// TestIframesIgnoreDamage verifies dash i-frames drop incoming damage
// entirely
func TestIframesIgnoreDamage(t *testing.T) {
	e, _ := newTestEngine()
	rec := record(e.Bus(), EventPlayerDie)
	victim := join(e, "p2", "Bob")

	e.Bus().Emit(CastCmdEvent{PlayerID: "p2", Skill: SkillDash})
	e.Bus().Emit(DamageAppliedEvent{TargetID: "p2", Amount: 999, SourceID: "p1", Weapon: "bullet"})

	if victim.HP != 100 {
		t.Errorf("hp = %d during i-frames, want 100", victim.HP)
	}
	if rec.count(EventPlayerDie) != 0 {
		t.Error("player died through i-frames")
	}
}

// TestKillWithAssist runs the two-attacker scenario: P1 softens P3, P2
// lands the killing blow, P1 gets the assist
func TestKillWithAssist(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(),
		EventPlayerDie, EventPlayerKill, EventFeedEntry, EventScoreUpdate, EventStreakChanged)

	p1 := join(e, "p1", "Alice")
	p2 := join(e, "p2", "Bob")
	p3 := join(e, "p3", "Carol")

	hit := func(source string, amount int) {
		e.Bus().Emit(DamageAppliedEvent{TargetID: "p3", Amount: amount, SourceID: source, Weapon: "bullet"})
	}

	hit("p1", 25) // t=0, 100 -> 75
	clock.Advance(time.Second)
	hit("p2", 25) // t=1000, 75 -> 50
	clock.Advance(time.Second)
	hit("p1", 25) // t=2000, 50 -> 25
	clock.Advance(500 * time.Millisecond)
	hit("p2", 25) // t=2500, kill

	if !p3.IsDead || p3.HP != 0 {
		t.Fatalf("victim isDead=%v hp=%d", p3.IsDead, p3.HP)
	}

	kills := rec.ofType(EventPlayerKill)
	if len(kills) != 1 {
		t.Fatalf("player:kill count = %d", len(kills))
	}
	kill := kills[0].(PlayerKillEvent)
	if kill.KillerID != "p2" || kill.VictimID != "p3" {
		t.Errorf("kill = %+v", kill)
	}
	if len(kill.AssistIDs) != 1 || kill.AssistIDs[0] != "p1" {
		t.Errorf("assistIds = %v, want [p1]", kill.AssistIDs)
	}

	feed := rec.ofType(EventFeedEntry)[0].(FeedEntryEvent)
	if feed.Weapon != "bullet" || len(feed.AssistIDs) != 1 {
		t.Errorf("feed entry = %+v", feed)
	}

	if p2.Stats.Kills != 1 || p1.Stats.Assists != 1 || p3.Stats.Deaths != 1 {
		t.Errorf("stats: kills=%d assists=%d deaths=%d", p2.Stats.Kills, p1.Stats.Assists, p3.Stats.Deaths)
	}

	// Killer, assister and victim each get a score:update.
	if rec.count(EventScoreUpdate) != 3 {
		t.Errorf("score:update count = %d, want 3", rec.count(EventScoreUpdate))
	}

	streak := rec.ofType(EventStreakChanged)[0].(StreakChangedEvent)
	if streak.PlayerID != "p2" || streak.Streak != 1 || streak.PreviousStreak != 0 {
		t.Errorf("streak = %+v", streak)
	}

	if p3.DeadUntil != e.NowMs()+e.cfg.Combat.RespawnDelay.Milliseconds() {
		t.Errorf("deadUntil = %d", p3.DeadUntil)
	}
}

// TestAssistWindowExpires verifies stale contributions don't count
func TestAssistWindowExpires(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(), EventPlayerKill)

	join(e, "p1", "Alice")
	join(e, "p2", "Bob")
	join(e, "p3", "Carol")

	e.Bus().Emit(DamageAppliedEvent{TargetID: "p3", Amount: 10, SourceID: "p1", Weapon: "bullet"})
	clock.Advance(e.cfg.Combat.AssistTimeWindow + time.Second)
	e.Bus().Emit(DamageAppliedEvent{TargetID: "p3", Amount: 90, SourceID: "p2", Weapon: "bullet"})

	kill := rec.ofType(EventPlayerKill)[0].(PlayerKillEvent)
	if len(kill.AssistIDs) != 0 {
		t.Errorf("stale assist counted: %v", kill.AssistIDs)
	}
}

// TestStreakAccumulatesAndResets verifies streak bookkeeping across kills
// and death
func TestStreakAccumulatesAndResets(t *testing.T) {
	e, _ := newTestEngine()
	killer := join(e, "p1", "Alice")

	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		victim := join(e, id, "victim-"+id)
		victim.HP = 10
		e.Bus().Emit(DamageAppliedEvent{TargetID: id, Amount: 10, SourceID: "p1", Weapon: "bullet"})
	}

	if killer.Stats.CurrentStreak != 3 || killer.Stats.BestStreak != 3 {
		t.Errorf("streak=%d best=%d, want 3/3", killer.Stats.CurrentStreak, killer.Stats.BestStreak)
	}

	// Killer dies: streak resets, best survives.
	killer.HP = 5
	e.Bus().Emit(DamageAppliedEvent{TargetID: "p1", Amount: 10, SourceID: "a", Weapon: "bullet"})
	if killer.Stats.CurrentStreak != 0 || killer.Stats.BestStreak != 3 {
		t.Errorf("after death: streak=%d best=%d", killer.Stats.CurrentStreak, killer.Stats.BestStreak)
	}
}

// TestRocketSplash verifies explosion damage and opposing knockbacks for
// players inside the radius
func TestRocketSplash(t *testing.T) {
	e, clock := newTestEngine()
	rec := record(e.Bus(), EventExplosionSpawned, EventDamageApplied, EventKnockbackApplied)

	owner := join(e, "p1", "Alice")
	left := join(e, "p2", "Bob")
	right := join(e, "p3", "Carol")
	owner.Pos = Vec2{1800, 1000} // Outside the blast
	left.Pos = Vec2{380, 400}    // Inside the direct-hit radius
	right.Pos = Vec2{450, 400}

	rocket := &Projectile{
		ID: "r1", OwnerID: "p1", Kind: KindRocket,
		Pos: Vec2{400, 400}, Vel: Vec2{},
		HitRadius: 30, Damage: 45, Lifetime: 5000, SpawnTime: e.NowMs(),
	}
	e.World().AddProjectile(rocket)

	step(e, clock, 33*time.Millisecond)

	if rec.count(EventExplosionSpawned) != 1 {
		t.Fatalf("explosion count = %d", rec.count(EventExplosionSpawned))
	}

	damages := rec.ofType(EventDamageApplied)
	if len(damages) != 2 {
		t.Fatalf("splash damage count = %d, want 2", len(damages))
	}
	for _, d := range damages {
		if d.(DamageAppliedEvent).Weapon != "explosion" {
			t.Errorf("weapon = %s, want explosion", d.(DamageAppliedEvent).Weapon)
		}
	}

	kbs := rec.ofType(EventKnockbackApplied)
	if len(kbs) != 2 {
		t.Fatalf("knockback count = %d, want 2", len(kbs))
	}
	var vx [2]float64
	for i, k := range kbs {
		vx[i] = k.(KnockbackAppliedEvent).VX
	}
	if vx[0]*vx[1] >= 0 {
		t.Errorf("knockbacks should oppose: %v", vx)
	}
}
