package arena

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Bot tuning. Bots issue the same cmd:* events as clients; they hold no
// private hooks into the simulation.
const (
	botThinkInterval  = 150 * time.Millisecond
	botFireRange      = 620.0
	botFireArc        = 0.35 // radians off-target within which bots shoot
	botSeparation     = 90.0
	botShotgunRange   = 220.0
	botRocketRange    = 480.0
	botRespawnPadding = 400 * time.Millisecond
)

// Bot is an AI combatant driving one player entity through the command
// path. Think runs on the simulation loop via the scheduler.
type Bot struct {
	engine *Engine

	ID         string
	Name       string
	aggression float64 // 0.5..1.0, per-bot fire eagerness
	stopped    bool
}

// NewBot creates a bot and issues its join command.
func NewBot(engine *Engine, name string) *Bot {
	b := &Bot{
		engine:     engine,
		ID:         uuid.NewString(),
		Name:       name,
		aggression: 0.5 + engine.Rand().Float64()*0.5,
	}

	engine.Do(func() {
		engine.Bus().Emit(JoinCmdEvent{PlayerID: b.ID, Name: b.Name})
		b.scheduleThink()
	})
	return b
}

// Stop halts the think loop and removes the bot's player.
func (b *Bot) Stop() {
	b.engine.Do(func() {
		b.stopped = true
		b.engine.Bus().Emit(LeaveCmdEvent{PlayerID: b.ID})
	})
}

func (b *Bot) scheduleThink() {
	b.engine.Scheduler().After(b.engine.Now(), botThinkInterval, b.think)
}

// think runs one decision step: respawn if allowed, otherwise chase the
// nearest live target, keep separation from other combatants, and fire when
// the target sits inside the arc.
func (b *Bot) think() {
	if b.stopped {
		return
	}
	defer b.scheduleThink()

	e := b.engine
	me := e.World().Player(b.ID)
	if me == nil {
		return
	}
	now := e.NowMs()

	if me.IsDead {
		if now >= me.DeadUntil+botRespawnPadding.Milliseconds() {
			e.Bus().Emit(RespawnCmdEvent{PlayerID: b.ID})
		}
		return
	}

	target := b.nearestTarget(me)
	if target == nil {
		if !me.Vel.IsZero() {
			e.Bus().Emit(MoveCmdEvent{PlayerID: b.ID, Dir: Vec2{}})
		}
		return
	}

	toTarget := target.Pos.Sub(me.Pos)
	dist := toTarget.Len()

	// Chase, blended with separation from nearby players.
	dir := toTarget.Normalized()
	dir = dir.Add(b.separation(me).Scale(1.2)).Normalized()
	e.Bus().Emit(MoveCmdEvent{PlayerID: b.ID, Dir: dir})
	e.Bus().Emit(AimCmdEvent{PlayerID: b.ID, Dir: toTarget})

	if dist > botFireRange {
		return
	}

	// Only fire once the authoritative facing has rotated onto the target.
	offAngle := math.Abs(angleDiff(me.Face.Angle(), toTarget.Angle()))
	if offAngle > botFireArc {
		return
	}
	if e.Rand().Float64() > b.aggression {
		return
	}

	skill := SkillShoot
	switch {
	case dist < botShotgunRange:
		skill = SkillShotgun
	case dist < botRocketRange && e.Rand().Float64() < 0.25:
		skill = SkillRocket
	}
	e.Bus().Emit(CastCmdEvent{PlayerID: b.ID, Skill: skill})
}

// nearestTarget returns the closest live player other than the bot itself.
func (b *Bot) nearestTarget(me *Player) *Player {
	var best *Player
	bestDist := math.MaxFloat64
	for _, p := range b.engine.World().Players {
		if p.ID == me.ID || p.IsDead {
			continue
		}
		if d := p.Pos.DistanceTo(me.Pos); d < bestDist {
			best = p
			bestDist = d
		}
	}
	return best
}

// separation returns a repulsion vector away from players standing too close.
func (b *Bot) separation(me *Player) Vec2 {
	push := Vec2{}
	for _, p := range b.engine.World().Players {
		if p.ID == me.ID || p.IsDead {
			continue
		}
		d := p.Pos.DistanceTo(me.Pos)
		if d == 0 || d >= botSeparation {
			continue
		}
		push = push.Add(me.Pos.Sub(p.Pos).Scale(1 / (d * d)))
	}
	return push.Normalized()
}

func angleDiff(a, bAngle float64) float64 {
	diff := bAngle - a
	for diff > math.Pi {
		diff -= 2 * math.Pi
	}
	for diff < -math.Pi {
		diff += 2 * math.Pi
	}
	return diff
}
