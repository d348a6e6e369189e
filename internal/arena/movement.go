package arena

import "math"

// maxSubstep is the longest displacement integrated in one collision step,
// in world units. Keeps fast movers from tunneling through thin walls.
const maxSubstep = 6.0

// faceEpsilon is the per-axis threshold for rebroadcasting facing changes.
const faceEpsilon = 1e-3

// heartbeatEpsilon is the per-axis threshold for heartbeat rebroadcast.
const heartbeatEpsilon = 0.01

// MovementSystem integrates players and projectiles on tick:pre. It owns the
// broadcast dedup state so position updates only go out when they carry new
// information, plus a heartbeat that heals lost updates.
type MovementSystem struct {
	engine *Engine

	lastBroadcastPos map[string]Vec2
	lastFace         map[string]Vec2
	dashing          map[string]bool

	heartbeatAccum int64 // ms since last heartbeat pass
	heartbeatPos   map[string]Vec2
}

// NewMovementSystem wires the movement handlers onto the bus.
func NewMovementSystem(engine *Engine) *MovementSystem {
	ms := &MovementSystem{
		engine:           engine,
		lastBroadcastPos: make(map[string]Vec2),
		lastFace:         make(map[string]Vec2),
		dashing:          make(map[string]bool),
		heartbeatPos:     make(map[string]Vec2),
	}

	bus := engine.Bus()
	bus.On(EventTickPre, func(e Event) { ms.tick(e.(TickPreEvent).Dt) })
	bus.On(EventPlayerLeave, func(e Event) { ms.forget(e.(PlayerLeaveEvent).PlayerID) })

	return ms
}

func (ms *MovementSystem) forget(playerID string) {
	delete(ms.lastBroadcastPos, playerID)
	delete(ms.lastFace, playerID)
	delete(ms.dashing, playerID)
	delete(ms.heartbeatPos, playerID)
}

func (ms *MovementSystem) tick(dt float64) {
	now := ms.engine.NowMs()

	for _, player := range ms.engine.World().Players {
		if player.IsDead {
			continue
		}
		ms.integratePlayer(player, dt, now)
	}

	ms.integrateProjectiles(dt, now)
	ms.heartbeat(dt, now)
}

// integratePlayer advances one live player: knockback and dash modifiers,
// substepped collision against bounds and obstacles, then turn-rate-limited
// aim and dedup'd broadcasts.
func (ms *MovementSystem) integratePlayer(p *Player, dt float64, now int64) {
	e := ms.engine

	eff := p.Vel
	if p.KB.Until > now {
		eff = eff.Add(Vec2{X: p.KB.VX, Y: p.KB.VY})
	} else if p.KB.Until != 0 {
		p.KB = Knockback{}
	}

	if p.DashActive(now) {
		eff = eff.Scale(p.DashFactor)
		ms.dashing[p.ID] = true
	} else if ms.dashing[p.ID] {
		delete(ms.dashing, p.ID)
		p.DashFactor = 0
		e.Bus().Emit(DashEndedEvent{PlayerID: p.ID})
	}

	moved := false
	if !eff.IsZero() {
		displacement := eff.Len() * dt
		steps := int(math.Ceil(displacement / maxSubstep))
		if steps < 1 {
			steps = 1
		}
		subDt := dt / float64(steps)

		for i := 0; i < steps; i++ {
			p.Pos = p.Pos.Add(eff.Scale(subDt))
			p.Pos = e.World().ClampToBounds(p.Pos)
			ms.resolveObstacles(p)
		}
		moved = true
	}

	// Aim rotation toward the target at up to TurnSpeed rad/s.
	if !p.FaceTarget.IsZero() {
		p.Face = p.Face.RotateToward(p.FaceTarget, e.cfg.Player.TurnSpeed*dt)
	}

	// Position broadcast, deduped against the last sent position.
	eps := e.cfg.Combat.MovementThreshold
	if moved {
		last, sent := ms.lastBroadcastPos[p.ID]
		if !sent || math.Abs(p.Pos.X-last.X) > eps || math.Abs(p.Pos.Y-last.Y) > eps {
			ms.lastBroadcastPos[p.ID] = p.Pos
			e.Bus().Emit(PlayerMoveEvent{PlayerID: p.ID, Pos: p.Pos})
		}
	}

	// Facing broadcast when the authoritative face actually rotated.
	lastFace, sent := ms.lastFace[p.ID]
	if !sent || math.Abs(p.Face.X-lastFace.X) > faceEpsilon || math.Abs(p.Face.Y-lastFace.Y) > faceEpsilon {
		ms.lastFace[p.ID] = p.Face
		e.Bus().Emit(PlayerAimedEvent{PlayerID: p.ID, Dir: p.Face})
	}
}

// resolveObstacles pushes the player circle out of every overlapping rect
// along the shortest penetration vector.
func (ms *MovementSystem) resolveObstacles(p *Player) {
	radius := ms.engine.cfg.Player.Radius

	for _, o := range ms.engine.World().Obstacles {
		closest := o.ClosestPoint(p.Pos)
		delta := p.Pos.Sub(closest)
		dist := delta.Len()
		if dist >= radius {
			continue
		}

		if dist > 0 {
			p.Pos = closest.Add(delta.Scale(radius / dist))
			continue
		}

		// Center inside the rect: exit through the nearest face.
		left := p.Pos.X - o.X
		right := o.X + o.W - p.Pos.X
		top := p.Pos.Y - o.Y
		bottom := o.Y + o.H - p.Pos.Y

		min := left
		exit := Vec2{X: o.X - radius, Y: p.Pos.Y}
		if right < min {
			min = right
			exit = Vec2{X: o.X + o.W + radius, Y: p.Pos.Y}
		}
		if top < min {
			min = top
			exit = Vec2{X: p.Pos.X, Y: o.Y - radius}
		}
		if bottom < min {
			exit = Vec2{X: p.Pos.X, Y: o.Y + o.H + radius}
		}
		p.Pos = exit
	}
}

// integrateProjectiles advances every projectile with substepped obstacle
// checks, handling expiry, bounces, explosions and despawns.
func (ms *MovementSystem) integrateProjectiles(dt float64, now int64) {
	e := ms.engine
	world := e.World()

	// Collect ids first: despawns mutate the map.
	ids := make([]string, 0, len(world.Projectiles))
	for id := range world.Projectiles {
		ids = append(ids, id)
	}

	for _, id := range ids {
		proj := world.Projectiles[id]
		if proj == nil {
			continue
		}

		if proj.Expired(now) {
			if proj.Kind == KindRocket {
				ms.explode(proj)
			}
			ms.despawn(proj)
			continue
		}

		if !ms.stepProjectile(proj, dt) {
			continue // Despawned mid-step
		}

		if !world.InBounds(proj.Pos) {
			ms.despawn(proj)
			continue
		}

		e.Bus().Emit(ProjectileMovedEvent{ProjectileID: proj.ID, Pos: proj.Pos})
	}
}

// stepProjectile advances the projectile through collision substeps. Returns
// false if the projectile despawned.
func (ms *MovementSystem) stepProjectile(proj *Projectile, dt float64) bool {
	displacement := proj.Vel.Len() * dt
	steps := int(math.Ceil(displacement / maxSubstep))
	if steps < 1 {
		steps = 1
	}
	subDt := dt / float64(steps)

	for i := 0; i < steps; i++ {
		proj.Pos = proj.Pos.Add(proj.Vel.Scale(subDt))

		hit := ms.hitObstacle(proj.Pos)
		if hit == nil {
			continue
		}

		if proj.Kind == KindRocket {
			ms.explode(proj)
			ms.despawn(proj)
			return false
		}

		normal := ms.escapeNormal(proj.Pos, *hit)
		ms.nudgeOutside(proj, *hit, normal)
		if !proj.Bounce(normal) {
			ms.despawn(proj)
			return false
		}
		ms.engine.Bus().Emit(ProjectileBouncedEvent{ProjectileID: proj.ID, Normal: normal})
	}
	return true
}

func (ms *MovementSystem) hitObstacle(p Vec2) *Obstacle {
	for i := range ms.engine.World().Obstacles {
		if ms.engine.World().Obstacles[i].Contains(p) {
			return &ms.engine.World().Obstacles[i]
		}
	}
	return nil
}

// escapeNormal returns the axis normal of the rect face with the smallest
// penetration depth from p.
func (ms *MovementSystem) escapeNormal(p Vec2, o Obstacle) Vec2 {
	left := p.X - o.X
	right := o.X + o.W - p.X
	top := p.Y - o.Y
	bottom := o.Y + o.H - p.Y

	min := left
	normal := Vec2{X: -1, Y: 0}
	if right < min {
		min = right
		normal = Vec2{X: 1, Y: 0}
	}
	if top < min {
		min = top
		normal = Vec2{X: 0, Y: -1}
	}
	if bottom < min {
		normal = Vec2{X: 0, Y: 1}
	}
	return normal
}

// nudgeOutside moves the projectile just past the rect surface along the
// normal so the next substep starts outside.
func (ms *MovementSystem) nudgeOutside(proj *Projectile, o Obstacle, normal Vec2) {
	const skin = 0.5
	switch {
	case normal.X < 0:
		proj.Pos.X = o.X - skin
	case normal.X > 0:
		proj.Pos.X = o.X + o.W + skin
	case normal.Y < 0:
		proj.Pos.Y = o.Y - skin
	default:
		proj.Pos.Y = o.Y + o.H + skin
	}
}

func (ms *MovementSystem) explode(proj *Projectile) {
	cfg := ms.engine.cfg.Explosions
	ms.engine.Bus().Emit(ExplosionSpawnedEvent{
		Pos:      proj.Pos,
		Radius:   cfg.Radius,
		Damage:   cfg.Damage,
		SourceID: proj.OwnerID,
	})
}

func (ms *MovementSystem) despawn(proj *Projectile) {
	ms.engine.World().RemoveProjectile(proj.ID)
	ms.engine.Bus().Emit(ProjectileDespawnedEvent{ProjectileID: proj.ID})
}

// heartbeat rebroadcasts positions of players that drifted since the last
// heartbeat snapshot, mitigating dropped player:move frames.
func (ms *MovementSystem) heartbeat(dt float64, now int64) {
	e := ms.engine
	ms.heartbeatAccum += int64(dt * 1000)
	interval := e.cfg.Combat.HeartbeatInterval.Milliseconds()
	if ms.heartbeatAccum < interval {
		return
	}
	ms.heartbeatAccum = 0

	for _, p := range e.World().Players {
		if p.IsDead {
			continue
		}
		last, seen := ms.heartbeatPos[p.ID]
		if seen && math.Abs(p.Pos.X-last.X) <= heartbeatEpsilon && math.Abs(p.Pos.Y-last.Y) <= heartbeatEpsilon {
			continue
		}
		ms.heartbeatPos[p.ID] = p.Pos
		e.Bus().Emit(PlayerMoveEvent{PlayerID: p.ID, Pos: p.Pos})
	}
}
