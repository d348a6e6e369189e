package arena

import "math"

// Projectile kinds.
const (
	KindBullet = "bullet"
	KindPellet = "pellet"
	KindRocket = "rocket"
)

// Projectile is a moving attack entity owned by the world. Damage and
// velocity decay on every wall bounce; rockets never bounce, they explode.
type Projectile struct {
	ID      string
	OwnerID string
	Kind    string

	Pos       Vec2
	Vel       Vec2
	HitRadius float64

	Damage            float64 // Mutable: dropoff applies per bounce
	Lifetime          int64   // ms, fixed at spawn
	SpawnTime         int64   // epoch ms
	BounceCount       int
	MaxBounces        int
	DamageDropoff     float64
	VelocityRetention float64
}

// Age returns milliseconds since spawn.
func (p *Projectile) Age(now int64) int64 {
	return now - p.SpawnTime
}

// Expired reports whether the projectile outlived its lifetime.
func (p *Projectile) Expired(now int64) bool {
	return p.Age(now) >= p.Lifetime
}

// CurrentDamage returns the damage the projectile deals on hit right now,
// rounded to whole points.
func (p *Projectile) CurrentDamage() int {
	return int(math.Round(p.Damage))
}

// Bounce reflects the projectile across the surface normal, applying the
// per-kind velocity retention and damage dropoff. Returns false when the
// projectile has no bounces left and must despawn instead.
func (p *Projectile) Bounce(normal Vec2) bool {
	p.BounceCount++
	if p.BounceCount > p.MaxBounces {
		return false
	}
	p.Vel = p.Vel.Reflect(normal).Scale(p.VelocityRetention)
	p.Damage *= p.DamageDropoff
	return true
}
