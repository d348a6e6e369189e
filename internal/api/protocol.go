package api

import (
	"encoding/json"
	"fmt"

	"event-arena/internal/arena"
)

// InboundFrame is the decoded shape of every client message. The Type field
// discriminates; unused fields stay zero.
type InboundFrame struct {
	Type    string      `json:"type"`
	Name    string      `json:"name,omitempty"`
	Dir     *arena.Vec2 `json:"dir,omitempty"`
	Skill   string      `json:"skill,omitempty"`
	Widgets []string    `json:"widgets,omitempty"`

	// Ignored if supplied: the bound connection id always wins.
	PlayerID string `json:"playerId,omitempty"`
}

// DecodeInbound parses one wire frame.
func DecodeInbound(data []byte) (InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return InboundFrame{}, fmt.Errorf("bad frame: %w", err)
	}
	if frame.Type == "" {
		return InboundFrame{}, fmt.Errorf("frame missing type")
	}
	return frame, nil
}

// MarshalEventFrame serializes a simulation event as a wire frame with the
// type discriminator spliced in, so payload structs don't carry a redundant
// type field. Serialized once per broadcast and shared across connections.
func MarshalEventFrame(e arena.Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type(), err)
	}

	head := fmt.Sprintf(`{"type":%q`, e.Type())
	if len(payload) == 2 { // "{}"
		return []byte(head + "}"), nil
	}
	out := make([]byte, 0, len(head)+len(payload))
	out = append(out, head...)
	out = append(out, ',')
	out = append(out, payload[1:]...)
	return out, nil
}

// MarshalFrame serializes an arbitrary frame object that already carries its
// own type field (welcome, session, HUD updates).
func MarshalFrame(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// connectedFrame is the first frame on every connection.
type connectedFrame struct {
	Type string `json:"type"`
	TS   int64  `json:"ts"` // epoch ms
}

// mapLoadedFrame delivers the static obstacle map.
type mapLoadedFrame struct {
	Type      string           `json:"type"`
	Obstacles []arena.Obstacle `json:"obstacles"`
}

// sessionPlayer is one existing player in the session:started roster.
type sessionPlayer struct {
	PlayerID string     `json:"playerId"`
	Name     string     `json:"name"`
	Pos      arena.Vec2 `json:"pos"`
}

// sessionMatch mirrors the current match for the joining client.
type sessionMatch struct {
	ID       string `json:"id"`
	Mode     string `json:"mode"`
	Phase    string `json:"phase"`
	StartsAt int64  `json:"startsAt,omitempty"`
	EndsAt   int64  `json:"endsAt,omitempty"`
}

// sessionStartedFrame is sent only to the joining connection.
type sessionStartedFrame struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId"`
	Name     string          `json:"name"`
	Players  []sessionPlayer `json:"players"`
	Match    *sessionMatch   `json:"match,omitempty"`
}

// BroadcastTypes is the fixed allowlist of event types fanned out to every
// connected client. player:dead is deliberately absent: it goes only to the
// dying player's connection.
var BroadcastTypes = []string{
	arena.EventPlayerJoin,
	arena.EventPlayerMove,
	arena.EventPlayerAimed,
	arena.EventPlayerDie,
	arena.EventPlayerKill,
	arena.EventPlayerLeave,
	arena.EventProjectileSpawned,
	arena.EventProjectileMoved,
	arena.EventProjectileDespawned,
	arena.EventProjectileBounced,
	arena.EventDamageApplied,
	arena.EventExplosionSpawned,
	arena.EventKnockbackApplied,
	arena.EventDashStarted,
	arena.EventDashEnded,
	arena.EventPickupSpawned,
	arena.EventPickupCollected,
	arena.EventBuffApplied,
	arena.EventBuffExpired,
	arena.EventMatchCreated,
	arena.EventMatchStarted,
	arena.EventMatchEnded,
	arena.EventScoreUpdate,
	arena.EventFeedEntry,
	arena.EventStreakChanged,
}
