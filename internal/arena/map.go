package arena

import (
	"log"
	"math/rand"
)

// Obstacle generation bounds for the random layout.
const (
	obstacleMinSize     = 60.0
	obstacleMaxSize     = 220.0
	obstacleSpawnMargin = 120.0
	centerClearRadius   = 180.0
)

// DefaultObstacles returns the fixed arena layout: two lane walls, two
// center blocks and four corner covers. Loaded once at map initialization.
func DefaultObstacles(width, height float64) []Obstacle {
	cx := width / 2
	cy := height / 2

	return []Obstacle{
		// Center blocks flanking the mid lane
		{Type: "rect", X: cx - 260, Y: cy - 40, W: 160, H: 80},
		{Type: "rect", X: cx + 100, Y: cy - 40, W: 160, H: 80},
		// Horizontal lane walls
		{Type: "rect", X: cx - 80, Y: cy - 320, W: 160, H: 50},
		{Type: "rect", X: cx - 80, Y: cy + 270, W: 160, H: 50},
		// Corner cover
		{Type: "rect", X: 220, Y: 180, W: 120, H: 120},
		{Type: "rect", X: width - 340, Y: 180, W: 120, H: 120},
		{Type: "rect", X: 220, Y: height - 300, W: 120, H: 120},
		{Type: "rect", X: width - 340, Y: height - 300, W: 120, H: 120},
	}
}

// GenerateObstacles scatters count random blocking rectangles, keeping the
// arena center clear and rejecting overlaps so corridors stay walkable.
func GenerateObstacles(width, height float64, count int, rng *rand.Rand) []Obstacle {
	if count <= 0 {
		return nil
	}

	obstacles := make([]Obstacle, 0, count)
	attempts := 0
	maxAttempts := count * 20
	center := Vec2{X: width / 2, Y: height / 2}

	for len(obstacles) < count && attempts < maxAttempts {
		attempts++

		w := obstacleMinSize + rng.Float64()*(obstacleMaxSize-obstacleMinSize)
		h := obstacleMinSize + rng.Float64()*(obstacleMaxSize-obstacleMinSize)

		maxX := width - obstacleSpawnMargin - w
		maxY := height - obstacleSpawnMargin - h
		if maxX <= obstacleSpawnMargin || maxY <= obstacleSpawnMargin {
			break
		}

		candidate := Obstacle{
			Type: "rect",
			X:    obstacleSpawnMargin + rng.Float64()*(maxX-obstacleSpawnMargin),
			Y:    obstacleSpawnMargin + rng.Float64()*(maxY-obstacleSpawnMargin),
			W:    w,
			H:    h,
		}

		if candidate.ClosestPoint(center).DistanceTo(center) < centerClearRadius {
			continue
		}

		overlaps := false
		for _, o := range obstacles {
			if rectsOverlap(candidate, o, 40) {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		obstacles = append(obstacles, candidate)
	}

	if len(obstacles) < count {
		log.Printf("🗺️ placed %d/%d obstacles after %d attempts", len(obstacles), count, attempts)
	}
	return obstacles
}

// rectsOverlap reports whether two rectangles come within gap units of each
// other on both axes.
func rectsOverlap(a, b Obstacle, gap float64) bool {
	return a.X-gap < b.X+b.W && a.X+a.W+gap > b.X &&
		a.Y-gap < b.Y+b.H && a.Y+a.H+gap > b.Y
}
