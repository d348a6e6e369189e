// Package journal records every non-excluded simulation event into durable,
// optionally compressed files for replay and analysis.
package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"event-arena/internal/arena"
)

// FormatVersion is written into every journal's metadata for replay
// compatibility checks.
const FormatVersion = 1

// Entry is one recorded event. Event holds the payload exactly as it was
// serialized at record time, so round-trips are byte-stable.
type Entry struct {
	ID        uint64           `json:"id"`
	Timestamp int64            `json:"timestamp"` // epoch ms
	GameTime  int64            `json:"gameTime"`  // ms since journal start
	EventType string           `json:"eventType"`
	Event     json.RawMessage  `json:"event"`
	Metadata  *EntryMetadata   `json:"metadata,omitempty"`
}

// EntryMetadata extracts the common ids out of an event payload so analysis
// tools can filter without decoding every variant.
type EntryMetadata struct {
	PlayerID  string   `json:"playerId,omitempty"`
	VictimID  string   `json:"victimId,omitempty"`
	AssistIDs []string `json:"assistIds,omitempty"`
	Source    string   `json:"source,omitempty"`
	MatchID   string   `json:"matchId,omitempty"`
}

// Metadata describes a journal as a whole.
type Metadata struct {
	ID              string         `json:"id"`
	CreatedAt       int64          `json:"createdAt"` // epoch ms
	MatchID         string         `json:"matchId,omitempty"`
	Duration        int64          `json:"duration"` // ms
	EventCount      int            `json:"eventCount"`
	PlayerIDs       []string       `json:"playerIds"`
	EventTypeCounts map[string]int `json:"eventTypeCounts"`
	Version         int            `json:"version"`
}

// Journal is the in-memory event buffer for one match or session scope.
// Append runs on the simulation loop; saves snapshot a prefix of Entries so
// the loop can keep appending while the writer drains.
type Journal struct {
	ID        string
	MatchID   string
	StartTime int64 // epoch ms
	Entries   []Entry

	nextID          uint64
	playerIDs       map[string]bool
	eventTypeCounts map[string]int
	savedCount      int // Entries already persisted by the last save
}

// New creates an empty journal. matchID is empty for session scopes.
func New(id, matchID string, start time.Time) *Journal {
	return &Journal{
		ID:              id,
		MatchID:         matchID,
		StartTime:       start.UnixMilli(),
		playerIDs:       make(map[string]bool),
		eventTypeCounts: make(map[string]int),
	}
}

// Record appends one event, stamping sequence id, wall timestamp and game
// time. Returns the entry for inspection.
func (j *Journal) Record(event arena.Event, now time.Time) (Entry, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", event.Type(), err)
	}

	j.nextID++
	ts := now.UnixMilli()
	entry := Entry{
		ID:        j.nextID,
		Timestamp: ts,
		GameTime:  ts - j.StartTime,
		EventType: event.Type(),
		Event:     payload,
		Metadata:  ExtractMetadata(event),
	}

	j.Entries = append(j.Entries, entry)
	j.eventTypeCounts[entry.EventType]++
	if entry.Metadata != nil {
		for _, id := range []string{entry.Metadata.PlayerID, entry.Metadata.VictimID, entry.Metadata.Source} {
			if id != "" {
				j.playerIDs[id] = true
			}
		}
		for _, id := range entry.Metadata.AssistIDs {
			j.playerIDs[id] = true
		}
	}
	return entry, nil
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	return len(j.Entries)
}

// UnsavedCount returns entries appended since the last completed save.
func (j *Journal) UnsavedCount() int {
	return len(j.Entries) - j.savedCount
}

// MarkSaved records that the first n entries are persisted.
func (j *Journal) MarkSaved(n int) {
	if n > j.savedCount {
		j.savedCount = n
	}
}

// Metadata builds the journal metadata frozen at count entries, with
// duration measured to now.
func (j *Journal) Metadata(count int, now time.Time) Metadata {
	ids := make([]string, 0, len(j.playerIDs))
	for id := range j.playerIDs {
		ids = append(ids, id)
	}
	counts := make(map[string]int, len(j.eventTypeCounts))
	for k, v := range j.eventTypeCounts {
		counts[k] = v
	}

	return Metadata{
		ID:              j.ID,
		CreatedAt:       j.StartTime,
		MatchID:         j.MatchID,
		Duration:        now.UnixMilli() - j.StartTime,
		EventCount:      count,
		PlayerIDs:       ids,
		EventTypeCounts: counts,
		Version:         FormatVersion,
	}
}

// Document is the on-disk JSON shape of a journal.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Entries  []Entry  `json:"entries"`
}

// ToJSON encodes the journal with metadata frozen at the full entry count.
func (j *Journal) ToJSON(now time.Time) ([]byte, error) {
	doc := Document{
		Metadata: j.Metadata(j.Len(), now),
		Entries:  j.Entries,
	}
	return json.Marshal(doc)
}

// FromJSON reconstructs a journal from its on-disk document, including the
// derived player set and type counters.
func FromJSON(data []byte) (*Journal, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode journal: %w", err)
	}

	j := &Journal{
		ID:              doc.Metadata.ID,
		MatchID:         doc.Metadata.MatchID,
		StartTime:       doc.Metadata.CreatedAt,
		Entries:         doc.Entries,
		playerIDs:       make(map[string]bool),
		eventTypeCounts: make(map[string]int),
	}
	for _, id := range doc.Metadata.PlayerIDs {
		j.playerIDs[id] = true
	}
	for _, e := range doc.Entries {
		j.eventTypeCounts[e.EventType]++
		if e.ID > j.nextID {
			j.nextID = e.ID
		}
	}
	j.savedCount = len(doc.Entries)
	return j, nil
}

// ExtractMetadata pulls the common ids for the event types that carry them.
// Events outside the set journal fine with nil metadata.
func ExtractMetadata(event arena.Event) *EntryMetadata {
	switch ev := event.(type) {
	case arena.JoinCmdEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.LeaveCmdEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerJoinEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerMoveEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerAimedEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerDieEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerDeadEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerLeaveEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.PlayerKillEvent:
		return &EntryMetadata{PlayerID: ev.KillerID, VictimID: ev.VictimID, AssistIDs: ev.AssistIDs}
	case arena.DamageAppliedEvent:
		return &EntryMetadata{PlayerID: ev.TargetID, Source: ev.SourceID}
	case arena.KnockbackAppliedEvent:
		return &EntryMetadata{PlayerID: ev.TargetID}
	case arena.DashStartedEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.DashEndedEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.ExplosionSpawnedEvent:
		return &EntryMetadata{Source: ev.SourceID}
	case arena.ProjectileSpawnedEvent:
		return &EntryMetadata{PlayerID: ev.OwnerID}
	case arena.PickupCollectedEvent:
		return &EntryMetadata{PlayerID: ev.By}
	case arena.BuffAppliedEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.BuffExpiredEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.ScoreUpdateEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.StreakChangedEvent:
		return &EntryMetadata{PlayerID: ev.PlayerID}
	case arena.FeedEntryEvent:
		return &EntryMetadata{PlayerID: ev.KillerID, VictimID: ev.VictimID, AssistIDs: ev.AssistIDs}
	case arena.MatchCreatedEvent:
		return &EntryMetadata{MatchID: ev.MatchID}
	case arena.MatchStartedEvent:
		return &EntryMetadata{MatchID: ev.MatchID}
	case arena.MatchEndedEvent:
		return &EntryMetadata{MatchID: ev.MatchID}
	}
	return nil
}
