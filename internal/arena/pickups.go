package arena

import "fmt"

// pickupKinds is the uniform draw set for spawns.
var pickupKinds = []string{PickupHeal, PickupHaste, PickupShield}

// PickupSystem spawns pickups on a fixed cadence, resolves collection by
// proximity and expires timed buffs, all on tick:post.
type PickupSystem struct {
	engine *Engine

	spawnAccum int64 // ms since the last spawn attempt
	pickupSeq  uint64
}

// NewPickupSystem wires the pickup handlers onto the bus.
func NewPickupSystem(engine *Engine) *PickupSystem {
	ps := &PickupSystem{engine: engine}
	engine.Bus().On(EventTickPost, func(e Event) { ps.tick(e.(TickPostEvent).Dt) })
	return ps
}

func (ps *PickupSystem) tick(dt float64) {
	now := ps.engine.NowMs()
	ps.spawn(dt)
	ps.collect(now)
	ps.expireBuffs(now)
}

func (ps *PickupSystem) spawn(dt float64) {
	e := ps.engine
	cfg := e.cfg.Pickups

	ps.spawnAccum += int64(dt * 1000)
	if ps.spawnAccum < cfg.SpawnInterval.Milliseconds() {
		return
	}
	ps.spawnAccum = 0

	if len(e.World().Pickups) >= cfg.MaxAlive {
		return
	}

	ps.pickupSeq++
	pickup := &Pickup{
		ID:   fmt.Sprintf("pickup_%d", ps.pickupSeq),
		Pos:  e.Spawn().FindSafeSpawnPosition(),
		Kind: pickupKinds[e.Rand().Intn(len(pickupKinds))],
	}
	e.World().AddPickup(pickup)
	e.Bus().Emit(PickupSpawnedEvent{PickupID: pickup.ID, Pos: pickup.Pos, Kind: pickup.Kind})
}

func (ps *PickupSystem) collect(now int64) {
	e := ps.engine
	world := e.World()
	radius := e.cfg.Pickups.PickRadius

	for _, player := range world.Players {
		if player.IsDead {
			continue
		}
		for _, pickup := range world.Pickups {
			if player.Pos.DistanceTo(pickup.Pos) > radius {
				continue
			}
			world.RemovePickup(pickup.ID)
			e.Bus().Emit(PickupCollectedEvent{PickupID: pickup.ID, By: player.ID})
			ps.applyBuff(player, pickup.Kind, now)
		}
	}
}

func (ps *PickupSystem) applyBuff(player *Player, kind string, now int64) {
	e := ps.engine
	buffs := e.cfg.Buffs

	switch kind {
	case PickupHeal:
		player.HP += buffs.HealAmount
		if player.HP > e.cfg.Player.HP {
			player.HP = e.cfg.Player.HP
		}
		e.Bus().Emit(BuffAppliedEvent{PlayerID: player.ID, Kind: PickupHeal, Duration: 0})

	case PickupHaste:
		duration := buffs.HasteDefaultDuration.Milliseconds()
		player.HasteUntil = now + duration
		player.HasteFactor = buffs.HasteMultiplier
		e.Bus().Emit(BuffAppliedEvent{PlayerID: player.ID, Kind: PickupHaste, Duration: duration})

	case PickupShield:
		duration := buffs.ShieldDefaultDuration.Milliseconds()
		player.ShieldUntil = now + duration
		e.Bus().Emit(BuffAppliedEvent{PlayerID: player.ID, Kind: PickupShield, Duration: duration})
	}
}

// expireBuffs clears timed buffs that ran out and announces the expiry.
func (ps *PickupSystem) expireBuffs(now int64) {
	e := ps.engine
	for _, player := range e.World().Players {
		if player.HasteUntil != 0 && player.HasteUntil <= now {
			player.HasteUntil = 0
			player.HasteFactor = 0
			e.Bus().Emit(BuffExpiredEvent{PlayerID: player.ID, Kind: PickupHaste})
		}
		if player.ShieldUntil != 0 && player.ShieldUntil <= now {
			player.ShieldUntil = 0
			e.Bus().Emit(BuffExpiredEvent{PlayerID: player.ID, Kind: PickupShield})
		}
	}
}
