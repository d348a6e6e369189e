// Package config provides centralized configuration management for the
// world, player, weapon, buff, combat, pickup, server and journal settings.
//
// Some tuning constants live beside the code that uses them instead: the
// map layout and spawn search in internal/arena, and the HUD buffer sizes
// and throttles in internal/hud.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds world geometry settings in world units.
type WorldConfig struct {
	Width  float64
	Height float64
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:  2000,
		Height: 1200,
	}
}

// =============================================================================
// PLAYER CONFIGURATION
// =============================================================================

// PlayerConfig holds per-player movement and combat baselines.
type PlayerConfig struct {
	HP        int     // Starting and maximum hit points
	Speed     float64 // Base movement speed in units/second
	Radius    float64 // Collision radius in world units
	TurnSpeed float64 // Max aim rotation in radians/second
}

// DefaultPlayer returns the default player configuration.
func DefaultPlayer() PlayerConfig {
	return PlayerConfig{
		HP:        100,
		Speed:     260,
		Radius:    18,
		TurnSpeed: 12,
	}
}

// =============================================================================
// PROJECTILE CONFIGURATION
// =============================================================================

// ProjectileKindConfig holds balance values for a single projectile kind.
type ProjectileKindConfig struct {
	Damage            int
	Lifetime          time.Duration
	MaxBounces        int
	DamageDropoff     float64 // Damage multiplier applied per bounce
	VelocityRetention float64 // Speed multiplier applied per bounce
}

// PelletConfig extends the base kind with shotgun spread parameters.
type PelletConfig struct {
	ProjectileKindConfig
	Count  int     // Pellets per shotgun blast
	Spread float64 // Half-arc in radians around the facing direction
}

// RocketConfig extends the base kind with rocket-specific motion.
type RocketConfig struct {
	ProjectileKindConfig
	Speed     float64 // Rockets fly slower than bullets
	HitRadius float64 // Rockets have a larger direct-hit radius
}

// ProjectilesConfig holds all projectile balance values.
type ProjectilesConfig struct {
	HitRadius float64 // Default collision radius for bullets and pellets
	BaseSpeed float64 // Units/second for bullets and pellets
	Bullet    ProjectileKindConfig
	Pellet    PelletConfig
	Rocket    RocketConfig
}

// DefaultProjectiles returns the default projectile configuration.
func DefaultProjectiles() ProjectilesConfig {
	return ProjectilesConfig{
		HitRadius: 22,
		BaseSpeed: 640,
		Bullet: ProjectileKindConfig{
			Damage:            25,
			Lifetime:          1500 * time.Millisecond,
			MaxBounces:        3,
			DamageDropoff:     0.8,
			VelocityRetention: 0.9,
		},
		Pellet: PelletConfig{
			ProjectileKindConfig: ProjectileKindConfig{
				Damage:            17,
				Lifetime:          700 * time.Millisecond,
				MaxBounces:        2,
				DamageDropoff:     0.7,
				VelocityRetention: 0.85,
			},
			Count:  5,
			Spread: 0.28,
		},
		Rocket: RocketConfig{
			ProjectileKindConfig: ProjectileKindConfig{
				Damage:            45,
				Lifetime:          2200 * time.Millisecond,
				MaxBounces:        0,
				DamageDropoff:     1.0,
				VelocityRetention: 1.0,
			},
			Speed:     420,
			HitRadius: 30,
		},
	}
}

// =============================================================================
// EXPLOSION CONFIGURATION
// =============================================================================

// ExplosionsConfig holds rocket splash settings.
type ExplosionsConfig struct {
	Radius         float64
	Damage         int
	KnockbackPower float64 // Knockback velocity per point of damage
}

// DefaultExplosions returns the default explosion configuration.
func DefaultExplosions() ExplosionsConfig {
	return ExplosionsConfig{
		Radius:         120,
		Damage:         35,
		KnockbackPower: 9,
	}
}

// =============================================================================
// COOLDOWN CONFIGURATION
// =============================================================================

// CooldownsConfig holds per-skill cooldowns.
type CooldownsConfig struct {
	Shoot   time.Duration
	Shotgun time.Duration
	Rocket  time.Duration
	Dash    time.Duration
}

// DefaultCooldowns returns the default cooldown configuration.
func DefaultCooldowns() CooldownsConfig {
	return CooldownsConfig{
		Shoot:   220 * time.Millisecond,
		Shotgun: 900 * time.Millisecond,
		Rocket:  1800 * time.Millisecond,
		Dash:    1500 * time.Millisecond,
	}
}

// =============================================================================
// BUFF CONFIGURATION
// =============================================================================

// BuffsConfig holds pickup buff settings.
type BuffsConfig struct {
	HasteMultiplier       float64
	ShieldReduction       float64 // Fraction of damage that still lands while shielded
	HasteDefaultDuration  time.Duration
	ShieldDefaultDuration time.Duration
	HealAmount            int
}

// DefaultBuffs returns the default buff configuration.
func DefaultBuffs() BuffsConfig {
	return BuffsConfig{
		HasteMultiplier:       1.6,
		ShieldReduction:       0.5,
		HasteDefaultDuration:  5 * time.Second,
		ShieldDefaultDuration: 5 * time.Second,
		HealAmount:            35,
	}
}

// =============================================================================
// COMBAT TUNING
// =============================================================================

// CombatConfig holds cross-cutting combat timing values.
type CombatConfig struct {
	KnockbackDuration time.Duration
	AssistTimeWindow  time.Duration
	HeartbeatInterval time.Duration
	MovementThreshold float64 // Min position delta before a move is rebroadcast
	RespawnDelay      time.Duration
	DashDuration      time.Duration
	DashFactor        float64
}

// DefaultCombat returns the default combat configuration.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		KnockbackDuration: 180 * time.Millisecond,
		AssistTimeWindow:  4 * time.Second,
		HeartbeatInterval: 300 * time.Millisecond,
		MovementThreshold: 0.05,
		RespawnDelay:      5 * time.Second,
		DashDuration:      220 * time.Millisecond,
		DashFactor:        2.5,
	}
}

// =============================================================================
// PICKUP CONFIGURATION
// =============================================================================

// PickupsConfig holds pickup spawn and collection settings.
type PickupsConfig struct {
	SpawnInterval time.Duration
	MaxAlive      int
	PickRadius    float64
}

// DefaultPickups returns the default pickup configuration.
func DefaultPickups() PickupsConfig {
	return PickupsConfig{
		SpawnInterval: 5 * time.Second,
		MaxAlive:      12,
		PickRadius:    20,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int
	TickRate     int // Simulation ticks per second
	Bots         int // Number of AI players spawned at startup
	MatchTime    time.Duration
	CountdownMs  time.Duration
	DemoMatches  bool // Create a fresh demo match after each one ends
	StaticDir    string
	AllowOrigins []string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		TickRate:    30,
		Bots:        0,
		MatchTime:   3 * time.Minute,
		CountdownMs: 5 * time.Second,
		DemoMatches: true,
		StaticDir:   "./web",
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if b := getEnvInt("BOTS", -1); b >= 0 {
		cfg.Bots = b
	}
	if os.Getenv("DEMO_MATCHES") == "false" {
		cfg.DemoMatches = false
	}
	if d := os.Getenv("STATIC_DIR"); d != "" {
		cfg.StaticDir = d
	}

	return cfg
}

// =============================================================================
// JOURNAL CONFIGURATION
// =============================================================================

// JournalConfig holds event journal settings.
type JournalConfig struct {
	Enabled         bool
	Debug           bool
	BaseDir         string
	Compress        bool
	MaxBufferSize   int // Entries before an advisory flush is requested
	MaxJournalSize  int // Entries before forced rotation
	StreamThreshold int // Entry count at which saves switch to streaming writes
	AutoSaveEvery   time.Duration
	KeepJournals    int // Newest journals retained by startup cleanup
}

// DefaultJournal returns the default journal configuration.
func DefaultJournal() JournalConfig {
	return JournalConfig{
		Enabled:         true,
		BaseDir:         "./journals",
		Compress:        true,
		MaxBufferSize:   5000,
		MaxJournalSize:  100_000,
		StreamThreshold: 10_000,
		AutoSaveEvery:   30 * time.Second,
		KeepJournals:    50,
	}
}

// JournalFromEnv returns journal configuration with environment overrides.
//
// Recognized variables: DISABLE_JOURNAL, DEBUG_JOURNAL, JOURNALS_DIR,
// EVENT_ARENA_ARTIFACTS_DIR, JOURNAL_STREAM_THRESHOLD.
func JournalFromEnv() JournalConfig {
	cfg := DefaultJournal()

	if os.Getenv("DISABLE_JOURNAL") == "true" || os.Getenv("DISABLE_JOURNAL") == "1" {
		cfg.Enabled = false
	}
	if os.Getenv("DEBUG_JOURNAL") == "true" || os.Getenv("DEBUG_JOURNAL") == "1" {
		cfg.Debug = true
	}
	if dir := os.Getenv("JOURNALS_DIR"); dir != "" {
		cfg.BaseDir = dir
	} else if artifacts := os.Getenv("EVENT_ARENA_ARTIFACTS_DIR"); artifacts != "" {
		cfg.BaseDir = artifacts + "/journals"
	}
	if th := getEnvInt("JOURNAL_STREAM_THRESHOLD", 0); th > 0 {
		cfg.StreamThreshold = th
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World       WorldConfig
	Player      PlayerConfig
	Projectiles ProjectilesConfig
	Explosions  ExplosionsConfig
	Cooldowns   CooldownsConfig
	Buffs       BuffsConfig
	Combat      CombatConfig
	Pickups     PickupsConfig
	Server      ServerConfig
	Journal     JournalConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:       DefaultWorld(),
		Player:      DefaultPlayer(),
		Projectiles: DefaultProjectiles(),
		Explosions:  DefaultExplosions(),
		Cooldowns:   DefaultCooldowns(),
		Buffs:       DefaultBuffs(),
		Combat:      DefaultCombat(),
		Pickups:     DefaultPickups(),
		Server:      ServerFromEnv(),
		Journal:     JournalFromEnv(),
	}
}

// Validate checks every constraint the simulation depends on and returns a
// single error listing all violations. The server refuses to start on any.
func (c AppConfig) Validate() error {
	var problems []string

	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.World.Width <= 0 || c.World.Height <= 0 {
		add("world dimensions must be positive, got %.0fx%.0f", c.World.Width, c.World.Height)
	}
	if c.Player.HP <= 0 {
		add("player.hp must be positive, got %d", c.Player.HP)
	}
	if c.Player.Speed <= 0 {
		add("player.speed must be positive, got %.1f", c.Player.Speed)
	}
	if c.Player.Radius <= 0 {
		add("player.radius must be positive, got %.1f", c.Player.Radius)
	}
	if c.Player.TurnSpeed <= 0 {
		add("player.turnSpeed must be positive, got %.1f", c.Player.TurnSpeed)
	}
	if c.Projectiles.BaseSpeed <= 0 {
		add("projectiles.baseSpeed must be positive, got %.1f", c.Projectiles.BaseSpeed)
	}
	if c.Projectiles.HitRadius <= 0 {
		add("projectiles.hitRadius must be positive, got %.1f", c.Projectiles.HitRadius)
	}

	kinds := []struct {
		name string
		k    ProjectileKindConfig
	}{
		{"bullet", c.Projectiles.Bullet},
		{"pellet", c.Projectiles.Pellet.ProjectileKindConfig},
		{"rocket", c.Projectiles.Rocket.ProjectileKindConfig},
	}
	for _, kind := range kinds {
		if kind.k.Damage <= 0 {
			add("projectiles.%s.damage must be positive, got %d", kind.name, kind.k.Damage)
		}
		if kind.k.Lifetime <= 0 {
			add("projectiles.%s.lifetime must be positive, got %v", kind.name, kind.k.Lifetime)
		}
		if kind.k.DamageDropoff < 0 || kind.k.DamageDropoff > 1 {
			add("projectiles.%s.damageDropoff must be in [0,1], got %.2f", kind.name, kind.k.DamageDropoff)
		}
		if kind.k.VelocityRetention < 0 || kind.k.VelocityRetention > 1 {
			add("projectiles.%s.velocityRetention must be in [0,1], got %.2f", kind.name, kind.k.VelocityRetention)
		}
		if kind.k.MaxBounces < 0 {
			add("projectiles.%s.maxBounces must be >= 0, got %d", kind.name, kind.k.MaxBounces)
		}
	}
	if c.Projectiles.Pellet.Count <= 0 {
		add("projectiles.pellet.count must be positive, got %d", c.Projectiles.Pellet.Count)
	}
	if c.Projectiles.Pellet.Spread <= 0 {
		add("projectiles.pellet.spread must be positive, got %.2f", c.Projectiles.Pellet.Spread)
	}
	if c.Projectiles.Rocket.Speed <= 0 {
		add("projectiles.rocket.speed must be positive, got %.1f", c.Projectiles.Rocket.Speed)
	}

	cooldowns := []struct {
		name string
		d    time.Duration
	}{
		{"shoot", c.Cooldowns.Shoot},
		{"shotgun", c.Cooldowns.Shotgun},
		{"rocket", c.Cooldowns.Rocket},
		{"dash", c.Cooldowns.Dash},
	}
	for _, cd := range cooldowns {
		if cd.d <= 0 {
			add("cooldowns.%s must be positive, got %v", cd.name, cd.d)
		}
	}

	if c.Explosions.Radius <= 0 {
		add("explosions.radius must be positive, got %.1f", c.Explosions.Radius)
	}
	if c.Explosions.Damage <= 0 {
		add("explosions.damage must be positive, got %d", c.Explosions.Damage)
	}
	if c.Buffs.ShieldReduction < 0 || c.Buffs.ShieldReduction > 1 {
		add("buffs.shieldReduction must be in [0,1], got %.2f", c.Buffs.ShieldReduction)
	}
	if c.Buffs.HasteMultiplier <= 0 {
		add("buffs.hasteMultiplier must be positive, got %.2f", c.Buffs.HasteMultiplier)
	}
	if c.Combat.HeartbeatInterval <= 0 {
		add("combat.heartbeatInterval must be positive, got %v", c.Combat.HeartbeatInterval)
	}
	if c.Combat.AssistTimeWindow <= 0 {
		add("combat.assistTimeWindow must be positive, got %v", c.Combat.AssistTimeWindow)
	}
	if c.Pickups.MaxAlive <= 0 {
		add("pickups.maxAlive must be positive, got %d", c.Pickups.MaxAlive)
	}
	if c.Server.TickRate <= 0 {
		add("server.tickRate must be positive, got %d", c.Server.TickRate)
	}
	if c.Journal.MaxJournalSize <= 0 {
		add("journal.maxJournalSize must be positive, got %d", c.Journal.MaxJournalSize)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
