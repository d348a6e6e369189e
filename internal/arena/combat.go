package arena

import (
	"log"
	"math"
)

// damageRecord is one contribution tracked for assist resolution.
type damageRecord struct {
	SourceID  string
	Timestamp int64 // epoch ms
	Amount    int
	Weapon    string
}

// CombatSystem resolves projectile hits, damage, kills, assists and streaks
// on tick:post. Damage always flows through damage:applied so every path
// (direct hit, splash, future hazards) shares shield, i-frame and kill logic.
type CombatSystem struct {
	engine *Engine

	// recentDamage tracks contributions per victim inside the assist window.
	recentDamage map[string][]damageRecord
}

// NewCombatSystem wires the combat handlers onto the bus.
func NewCombatSystem(engine *Engine) *CombatSystem {
	cs := &CombatSystem{
		engine:       engine,
		recentDamage: make(map[string][]damageRecord),
	}

	bus := engine.Bus()
	bus.On(EventTickPost, func(e Event) { cs.tick() })
	bus.On(EventDamageApplied, func(e Event) { cs.applyDamage(e.(DamageAppliedEvent)) })
	bus.On(EventExplosionSpawned, func(e Event) { cs.applySplash(e.(ExplosionSpawnedEvent)) })
	bus.On(EventPlayerLeave, func(e Event) { delete(cs.recentDamage, e.(PlayerLeaveEvent).PlayerID) })

	return cs
}

// tick checks every projectile against every live non-owner player and
// consumes projectiles on contact.
func (cs *CombatSystem) tick() {
	e := cs.engine
	world := e.World()

	ids := make([]string, 0, len(world.Projectiles))
	for id := range world.Projectiles {
		ids = append(ids, id)
	}

	for _, id := range ids {
		proj := world.Projectiles[id]
		if proj == nil {
			continue
		}

		for _, player := range world.Players {
			if player.IsDead || player.ID == proj.OwnerID {
				continue
			}
			if proj.Pos.DistanceTo(player.Pos) > proj.HitRadius {
				continue
			}

			// Consumed on first contact.
			world.RemoveProjectile(proj.ID)
			e.Bus().Emit(ProjectileDespawnedEvent{ProjectileID: proj.ID})

			if proj.Kind == KindRocket {
				cfg := e.cfg.Explosions
				e.Bus().Emit(ExplosionSpawnedEvent{
					Pos:      proj.Pos,
					Radius:   cfg.Radius,
					Damage:   cfg.Damage,
					SourceID: proj.OwnerID,
				})
			} else {
				e.Bus().Emit(DamageAppliedEvent{
					TargetID: player.ID,
					Amount:   proj.CurrentDamage(),
					SourceID: proj.OwnerID,
					Weapon:   proj.Kind,
				})
				if shooter := world.Player(proj.OwnerID); shooter != nil {
					shooter.Stats.ShotsHit++
				}
			}
			break
		}
	}
}

// applySplash damages and knocks back every live player inside the blast.
// The radial knockback here replaces the generic source-directed knockback
// of the damage handler.
func (cs *CombatSystem) applySplash(ev ExplosionSpawnedEvent) {
	e := cs.engine

	for _, player := range e.World().Players {
		if player.IsDead {
			continue
		}
		if ev.Pos.DistanceTo(player.Pos) > ev.Radius {
			continue
		}

		e.Bus().Emit(DamageAppliedEvent{
			TargetID: player.ID,
			Amount:   ev.Damage,
			SourceID: ev.SourceID,
			Weapon:   "explosion",
		})

		away := player.Pos.Sub(ev.Pos).NormalizedOr(Vec2{X: 1, Y: 0})
		cs.knockback(player, away, float64(ev.Damage))
	}
}

// applyDamage is the single damage resolution path: i-frames, shield,
// HP, assist tracking, knockback and kill resolution.
func (cs *CombatSystem) applyDamage(ev DamageAppliedEvent) {
	e := cs.engine
	now := e.NowMs()

	target := e.World().Player(ev.TargetID)
	if target == nil || target.IsDead || target.Invulnerable(now) {
		return
	}

	effective := ev.Amount
	if target.ShieldActive(now) {
		effective = int(math.Ceil(float64(ev.Amount) * e.cfg.Buffs.ShieldReduction))
	}

	target.HP -= effective
	if target.HP < 0 {
		target.HP = 0
	}
	target.Stats.DamageTaken += effective

	if source := e.World().Player(ev.SourceID); source != nil && source.ID != target.ID {
		source.Stats.DamageDealt += effective
	}

	// Track for assist resolution inside the window. Stale records are
	// pruned on append so long-lived victims don't accumulate history.
	if ev.SourceID != "" && ev.SourceID != target.ID {
		cutoff := now - e.cfg.Combat.AssistTimeWindow.Milliseconds()
		records := cs.recentDamage[target.ID][:0]
		for _, rec := range cs.recentDamage[target.ID] {
			if rec.Timestamp >= cutoff {
				records = append(records, rec)
			}
		}
		cs.recentDamage[target.ID] = append(records, damageRecord{
			SourceID:  ev.SourceID,
			Timestamp: now,
			Amount:    effective,
			Weapon:    ev.Weapon,
		})
	}

	// Explosions apply their own radial knockback in applySplash.
	if ev.Weapon != "explosion" {
		if source := e.World().Player(ev.SourceID); source != nil && source.ID != target.ID {
			dir := target.Pos.Sub(source.Pos).NormalizedOr(Vec2{X: 1, Y: 0})
			cs.knockback(target, dir, float64(effective))
		}
	}

	if target.HP <= 0 {
		cs.resolveKill(target, ev.SourceID, ev.Weapon, now)
	}
}

func (cs *CombatSystem) knockback(target *Player, dir Vec2, damage float64) {
	e := cs.engine
	now := e.NowMs()
	power := damage * e.cfg.Explosions.KnockbackPower
	duration := e.cfg.Combat.KnockbackDuration.Milliseconds()

	target.KB = Knockback{
		VX:    dir.X * power,
		VY:    dir.Y * power,
		Until: now + duration,
	}
	e.Bus().Emit(KnockbackAppliedEvent{
		TargetID: target.ID,
		VX:       target.KB.VX,
		VY:       target.KB.VY,
		Duration: duration,
	})
}

// resolveKill marks the victim dead and credits killer, assists and streaks.
func (cs *CombatSystem) resolveKill(victim *Player, sourceID, weapon string, now int64) {
	e := cs.engine

	victim.IsDead = true
	victim.DiedAt = now
	victim.DeadUntil = now + e.cfg.Combat.RespawnDelay.Milliseconds()
	victim.Vel = Vec2{}
	victim.Stats.Deaths++
	victim.Stats.LastDeathTime = now
	victim.Stats.CurrentStreak = 0

	killer := e.World().Player(sourceID)
	if killer != nil && killer.ID != victim.ID {
		killer.Stats.Kills++
		killer.Stats.LastKillTime = now

		previous := killer.Stats.CurrentStreak
		killer.Stats.CurrentStreak++
		if killer.Stats.CurrentStreak > killer.Stats.BestStreak {
			killer.Stats.BestStreak = killer.Stats.CurrentStreak
		}
		e.Bus().Emit(StreakChangedEvent{
			PlayerID:       killer.ID,
			Streak:         killer.Stats.CurrentStreak,
			PreviousStreak: previous,
		})

		assists := cs.resolveAssists(victim.ID, killer.ID, now)
		for _, assistID := range assists {
			if assister := e.World().Player(assistID); assister != nil {
				assister.Stats.Assists++
			}
		}

		log.Printf("💀 %s killed by %s (%s), %d assist(s)", victim.Name, killer.Name, weapon, len(assists))

		e.Bus().Emit(PlayerKillEvent{KillerID: killer.ID, VictimID: victim.ID, AssistIDs: assists})
		e.Bus().Emit(FeedEntryEvent{
			KillerID:  killer.ID,
			VictimID:  victim.ID,
			Weapon:    weapon,
			AssistIDs: assists,
			Timestamp: now,
		})

		cs.emitScore(killer)
		for _, assistID := range assists {
			if assister := e.World().Player(assistID); assister != nil {
				cs.emitScore(assister)
			}
		}
		cs.emitScore(victim)
	}

	e.Bus().Emit(PlayerDieEvent{PlayerID: victim.ID})
	e.Bus().Emit(PlayerDeadEvent{PlayerID: victim.ID, Until: victim.DeadUntil})

	delete(cs.recentDamage, victim.ID)
}

// resolveAssists returns the unique contributors to the victim inside the
// assist window, excluding the killer. Any damage counts; there is no
// minimum threshold.
func (cs *CombatSystem) resolveAssists(victimID, killerID string, now int64) []string {
	window := cs.engine.cfg.Combat.AssistTimeWindow.Milliseconds()
	cutoff := now - window

	seen := make(map[string]bool)
	var assists []string
	for _, rec := range cs.recentDamage[victimID] {
		if rec.Timestamp < cutoff || rec.SourceID == killerID || seen[rec.SourceID] {
			continue
		}
		seen[rec.SourceID] = true
		assists = append(assists, rec.SourceID)
	}
	return assists
}

func (cs *CombatSystem) emitScore(p *Player) {
	cs.engine.Bus().Emit(ScoreUpdateEvent{
		PlayerID: p.ID,
		Kills:    p.Stats.Kills,
		Deaths:   p.Stats.Deaths,
		Assists:  p.Stats.Assists,
	})
}
