package arena

import (
	"log"
	"math/rand"
)

// SpawnMargins insets the spawnable rectangle from the world edges.
type SpawnMargins struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// SpawnConfig tunes safe-position search.
type SpawnConfig struct {
	Margins                SpawnMargins
	MinDistanceFromPlayers float64
	MaxAttempts            int
}

// DefaultSpawnConfig returns the spawn tuning used by the arena.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		Margins:                SpawnMargins{Left: 80, Right: 80, Top: 80, Bottom: 80},
		MinDistanceFromPlayers: 220,
		MaxAttempts:            24,
	}
}

// SpawnManager finds positions that are inside the inner rectangle, outside
// every obstacle and away from live players. It reads the world but never
// mutates it.
type SpawnManager struct {
	world *World
	cfg   SpawnConfig
	rng   *rand.Rand
}

// NewSpawnManager creates a spawn manager over the world.
func NewSpawnManager(world *World, cfg SpawnConfig, rng *rand.Rand) *SpawnManager {
	return &SpawnManager{world: world, cfg: cfg, rng: rng}
}

// IsWithinSpawnBounds reports whether p lies inside the margin-inset rectangle.
func (s *SpawnManager) IsWithinSpawnBounds(p Vec2) bool {
	m := s.cfg.Margins
	return p.X >= m.Left && p.X <= s.world.Width-m.Right &&
		p.Y >= m.Top && p.Y <= s.world.Height-m.Bottom
}

// GetRandomSafePosition returns a uniform sample from the inner rectangle.
// The sample is not checked against obstacles or players.
func (s *SpawnManager) GetRandomSafePosition() Vec2 {
	m := s.cfg.Margins
	return Vec2{
		X: m.Left + s.rng.Float64()*(s.world.Width-m.Left-m.Right),
		Y: m.Top + s.rng.Float64()*(s.world.Height-m.Top-m.Bottom),
	}
}

// IsPositionBlocked reports whether p lies inside any obstacle rect, inclusive.
func (s *SpawnManager) IsPositionBlocked(p Vec2) bool {
	return s.world.BlockedAt(p)
}

// FindSafeSpawnPosition searches for a position satisfying bounds, obstacles
// and player distance. Falls back through progressively weaker guarantees and
// always returns something usable.
func (s *SpawnManager) FindSafeSpawnPosition() Vec2 {
	live := s.world.LivePlayers()

	// Rejection sampling against the full constraint set.
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		candidate := s.GetRandomSafePosition()
		if s.IsPositionBlocked(candidate) {
			continue
		}
		if s.minDistanceToPlayers(candidate, live) >= s.cfg.MinDistanceFromPlayers {
			return candidate
		}
	}

	// Fallback: among extra unblocked samples pick the one farthest from
	// any live player, even if inside the minimum distance.
	best := Vec2{}
	bestDist := -1.0
	for i := 0; i < 16; i++ {
		candidate := s.GetRandomSafePosition()
		if s.IsPositionBlocked(candidate) {
			continue
		}
		d := s.minDistanceToPlayers(candidate, live)
		if d > bestDist {
			best = candidate
			bestDist = d
		}
	}
	if bestDist >= 0 {
		return best
	}

	// Emergency: center, then corner-inset points.
	center := Vec2{X: s.world.Width / 2, Y: s.world.Height / 2}
	if !s.IsPositionBlocked(center) {
		return center
	}
	m := s.cfg.Margins
	corners := []Vec2{
		{X: m.Left + 40, Y: m.Top + 40},
		{X: s.world.Width - m.Right - 40, Y: m.Top + 40},
		{X: m.Left + 40, Y: s.world.Height - m.Bottom - 40},
		{X: s.world.Width - m.Right - 40, Y: s.world.Height - m.Bottom - 40},
	}
	for _, c := range corners {
		if !s.IsPositionBlocked(c) {
			return c
		}
	}

	log.Printf("⚠️ no unblocked spawn position found, using center")
	return center
}

// AdjustSpawnPointsToMargins clamps each point into the inner rectangle.
func (s *SpawnManager) AdjustSpawnPointsToMargins(points []Vec2) []Vec2 {
	m := s.cfg.Margins
	out := make([]Vec2, len(points))
	for i, p := range points {
		out[i] = p.Clamp(m.Left, m.Top, s.world.Width-m.Right, s.world.Height-m.Bottom)
	}
	return out
}

func (s *SpawnManager) minDistanceToPlayers(p Vec2, live []*Player) float64 {
	if len(live) == 0 {
		return 1e18
	}
	min := 1e18
	for _, pl := range live {
		if d := pl.Pos.DistanceTo(p); d < min {
			min = d
		}
	}
	return min
}
