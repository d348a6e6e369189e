package arena

import (
	"fmt"
	"log"
	"math"

	"event-arena/internal/config"
)

// dirEpsilon is the component threshold below which two movement directions
// are treated as the same command.
const dirEpsilon = 1e-6

// CommandSystem translates cmd:* events into world mutations and projectile
// spawns. It enforces liveness, cooldowns and move dedup; invalid commands
// are dropped silently per the error policy.
type CommandSystem struct {
	engine *Engine

	lastMoveDir map[string]Vec2
	projSeq     uint64
}

// NewCommandSystem wires the command handlers onto the bus.
func NewCommandSystem(engine *Engine) *CommandSystem {
	cs := &CommandSystem{
		engine:      engine,
		lastMoveDir: make(map[string]Vec2),
	}

	bus := engine.Bus()
	bus.On(EventCmdJoin, func(e Event) { cs.handleJoin(e.(JoinCmdEvent)) })
	bus.On(EventCmdLeave, func(e Event) { cs.handleLeave(e.(LeaveCmdEvent)) })
	bus.On(EventCmdMove, func(e Event) { cs.handleMove(e.(MoveCmdEvent)) })
	bus.On(EventCmdAim, func(e Event) { cs.handleAim(e.(AimCmdEvent)) })
	bus.On(EventCmdCast, func(e Event) { cs.handleCast(e.(CastCmdEvent)) })
	bus.On(EventCmdRespawn, func(e Event) { cs.handleRespawn(e.(RespawnCmdEvent)) })

	return cs
}

func (cs *CommandSystem) handleJoin(cmd JoinCmdEvent) {
	e := cs.engine
	if e.World().Player(cmd.PlayerID) != nil {
		return
	}

	pos := e.Spawn().FindSafeSpawnPosition()
	player := NewPlayer(cmd.PlayerID, cmd.Name, pos, e.cfg.Player.HP)
	e.World().AddPlayer(player)

	log.Printf("👤 player joined: %s (%s)", player.Name, player.ID)
	e.Bus().Emit(PlayerJoinEvent{
		PlayerID: player.ID,
		Name:     player.Name,
		Pos:      player.Pos,
		HP:       player.HP,
	})
}

func (cs *CommandSystem) handleLeave(cmd LeaveCmdEvent) {
	e := cs.engine
	if e.World().Player(cmd.PlayerID) == nil {
		return
	}

	e.World().RemovePlayer(cmd.PlayerID)
	delete(cs.lastMoveDir, cmd.PlayerID)

	log.Printf("👋 player left: %s", cmd.PlayerID)
	e.Bus().Emit(PlayerLeaveEvent{PlayerID: cmd.PlayerID})
}

func (cs *CommandSystem) handleMove(cmd MoveCmdEvent) {
	e := cs.engine
	player := e.World().Player(cmd.PlayerID)
	if player == nil || player.IsDead {
		return
	}

	// Dedup: repeated identical directions are a no-op.
	if last, ok := cs.lastMoveDir[cmd.PlayerID]; ok {
		if math.Abs(last.X-cmd.Dir.X) < dirEpsilon && math.Abs(last.Y-cmd.Dir.Y) < dirEpsilon {
			return
		}
	}
	cs.lastMoveDir[cmd.PlayerID] = cmd.Dir

	dir := cmd.Dir.Normalized()
	speed := e.cfg.Player.Speed
	if player.HasteActive(e.NowMs()) {
		speed *= player.HasteFactor
	}
	player.Vel = dir.Scale(speed)
}

func (cs *CommandSystem) handleAim(cmd AimCmdEvent) {
	e := cs.engine
	player := e.World().Player(cmd.PlayerID)
	if player == nil || player.IsDead {
		return
	}

	target := cmd.Dir.NormalizedOr(Vec2{})
	if target.IsZero() {
		return
	}
	player.FaceTarget = target

	// Echo the intent immediately; Face still rotates at TurnSpeed during
	// integration, so clients see responsive crosshairs without snapping
	// the authoritative facing.
	e.Bus().Emit(PlayerAimedEvent{PlayerID: player.ID, Dir: target})
}

func (cs *CommandSystem) handleCast(cmd CastCmdEvent) {
	e := cs.engine
	player := e.World().Player(cmd.PlayerID)
	if player == nil || player.IsDead {
		return
	}
	now := e.NowMs()

	switch cmd.Skill {
	case SkillShoot:
		if !cs.takeCooldown(player, SkillShoot, e.cfg.Cooldowns.Shoot.Milliseconds(), now) {
			return
		}
		cs.spawnProjectile(player, KindBullet, player.FireDirection(), e.cfg.Projectiles.BaseSpeed)
		player.Stats.ShotsFired++

	case SkillShotgun:
		if !cs.takeCooldown(player, SkillShotgun, e.cfg.Cooldowns.Shotgun.Milliseconds(), now) {
			return
		}
		pellet := e.cfg.Projectiles.Pellet
		base := player.FireDirection().Angle()
		for i := 0; i < pellet.Count; i++ {
			// Even spread across [-spread, +spread] around the facing.
			frac := 0.5
			if pellet.Count > 1 {
				frac = float64(i) / float64(pellet.Count-1)
			}
			angle := base - pellet.Spread + 2*pellet.Spread*frac
			cs.spawnProjectile(player, KindPellet, FromAngle(angle), e.cfg.Projectiles.BaseSpeed)
		}
		player.Stats.ShotsFired++

	case SkillRocket:
		if !cs.takeCooldown(player, SkillRocket, e.cfg.Cooldowns.Rocket.Milliseconds(), now) {
			return
		}
		cs.spawnProjectile(player, KindRocket, player.FireDirection(), e.cfg.Projectiles.Rocket.Speed)
		player.Stats.ShotsFired++

	case SkillDash:
		if !cs.takeCooldown(player, SkillDash, e.cfg.Cooldowns.Dash.Milliseconds(), now) {
			return
		}
		duration := e.cfg.Combat.DashDuration.Milliseconds()
		player.DashUntil = now + duration
		player.IframeUntil = now + duration
		player.DashFactor = e.cfg.Combat.DashFactor
		e.Bus().Emit(DashStartedEvent{PlayerID: player.ID, Duration: duration, IFrames: true})

	default:
		log.Printf("⚠️ unknown skill %q from %s", cmd.Skill, cmd.PlayerID)
	}
}

func (cs *CommandSystem) handleRespawn(cmd RespawnCmdEvent) {
	e := cs.engine
	player := e.World().Player(cmd.PlayerID)
	if player == nil || !player.IsDead {
		return
	}
	now := e.NowMs()
	if now < player.DeadUntil {
		return
	}

	pos := e.Spawn().FindSafeSpawnPosition()
	player.Revive(pos, e.cfg.Player.HP)
	delete(cs.lastMoveDir, player.ID)

	// Re-signal presence; clients treat a repeated join as a respawn.
	e.Bus().Emit(PlayerJoinEvent{
		PlayerID: player.ID,
		Name:     player.Name,
		Pos:      player.Pos,
		HP:       player.HP,
	})
}

// takeCooldown checks and arms the cooldown in one step. Attempts during an
// active cooldown are dropped.
func (cs *CommandSystem) takeCooldown(player *Player, skill string, cooldownMs, now int64) bool {
	if !player.CooldownReady(skill, now) {
		return false
	}
	player.Cooldowns[skill] = now + cooldownMs
	return true
}

func (cs *CommandSystem) spawnProjectile(owner *Player, kind string, dir Vec2, speed float64) {
	e := cs.engine
	cs.projSeq++

	var kindCfg config.ProjectileKindConfig
	hitRadius := e.cfg.Projectiles.HitRadius
	switch kind {
	case KindBullet:
		kindCfg = e.cfg.Projectiles.Bullet
	case KindPellet:
		kindCfg = e.cfg.Projectiles.Pellet.ProjectileKindConfig
	case KindRocket:
		kindCfg = e.cfg.Projectiles.Rocket.ProjectileKindConfig
		hitRadius = e.cfg.Projectiles.Rocket.HitRadius
	}

	dir = dir.NormalizedOr(Vec2{X: 1, Y: 0})
	proj := &Projectile{
		ID:                fmt.Sprintf("proj_%d_%s", cs.projSeq, owner.ID),
		OwnerID:           owner.ID,
		Kind:              kind,
		Pos:               owner.Pos,
		Vel:               dir.Scale(speed),
		HitRadius:         hitRadius,
		Damage:            float64(kindCfg.Damage),
		Lifetime:          kindCfg.Lifetime.Milliseconds(),
		SpawnTime:         e.NowMs(),
		MaxBounces:        kindCfg.MaxBounces,
		DamageDropoff:     kindCfg.DamageDropoff,
		VelocityRetention: kindCfg.VelocityRetention,
	}
	e.World().AddProjectile(proj)

	e.Bus().Emit(ProjectileSpawnedEvent{
		ProjectileID: proj.ID,
		OwnerID:      proj.OwnerID,
		Kind:         proj.Kind,
		Pos:          proj.Pos,
		Vel:          proj.Vel,
	})
}
