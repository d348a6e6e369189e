package api

import (
	"encoding/json"
	"net/http"
	"sort"

	"event-arena/internal/arena"
)

// JournalStats is implemented by the journal system; kept as an interface so
// the router works with journaling disabled.
type JournalStats interface {
	Stats() map[string]interface{}
}

// Handlers serves the read-only JSON endpoints. World reads are marshaled on
// the simulation loop and handed back through a channel, so HTTP goroutines
// never touch world state directly.
type Handlers struct {
	engine  *arena.Engine
	journal JournalStats
}

// NewHandlers creates the endpoint handlers. journal may be nil.
func NewHandlers(engine *arena.Engine, journal JournalStats) *Handlers {
	return &Handlers{engine: engine, journal: journal}
}

// onLoop runs fn on the simulation loop and waits for its result.
func (h *Handlers) onLoop(fn func() interface{}) interface{} {
	result := make(chan interface{}, 1)
	h.engine.Do(func() { result <- fn() })
	return <-result
}

func (h *Handlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	type playerView struct {
		PlayerID string     `json:"playerId"`
		Name     string     `json:"name"`
		Pos      arena.Vec2 `json:"pos"`
		HP       int        `json:"hp"`
		IsDead   bool       `json:"isDead"`
	}

	state := h.onLoop(func() interface{} {
		world := h.engine.World()
		players := make([]playerView, 0, len(world.Players))
		alive := 0
		for _, p := range world.Players {
			players = append(players, playerView{
				PlayerID: p.ID, Name: p.Name, Pos: p.Pos, HP: p.HP, IsDead: p.IsDead,
			})
			if !p.IsDead {
				alive++
			}
		}
		sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

		return map[string]interface{}{
			"players":         players,
			"playerCount":     len(players),
			"aliveCount":      alive,
			"projectileCount": len(world.Projectiles),
			"pickupCount":     len(world.Pickups),
		}
	})
	writeJSON(w, state)
}

func (h *Handlers) handleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	type row struct {
		PlayerID string `json:"playerId"`
		Name     string `json:"name"`
		Kills    int    `json:"kills"`
		Deaths   int    `json:"deaths"`
		Assists  int    `json:"assists"`
	}

	rows := h.onLoop(func() interface{} {
		world := h.engine.World()
		out := make([]row, 0, len(world.Players))
		for _, p := range world.Players {
			out = append(out, row{
				PlayerID: p.ID, Name: p.Name,
				Kills: p.Stats.Kills, Deaths: p.Stats.Deaths, Assists: p.Stats.Assists,
			})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Kills != out[j].Kills {
				return out[i].Kills > out[j].Kills
			}
			if out[i].Deaths != out[j].Deaths {
				return out[i].Deaths < out[j].Deaths
			}
			return out[i].Name < out[j].Name
		})
		return out
	})
	writeJSON(w, rows)
}

func (h *Handlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	state := h.onLoop(func() interface{} {
		m := h.engine.Match().Current()
		if m == nil {
			return map[string]interface{}{"phase": arena.PhaseIdle}
		}
		return map[string]interface{}{
			"id":       m.ID,
			"mode":     m.Mode,
			"phase":    m.Phase,
			"startsAt": m.StartsAt,
			"endsAt":   m.EndsAt,
		}
	})
	writeJSON(w, state)
}

func (h *Handlers) handleJournalStats(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, map[string]interface{}{"enabled": false})
		return
	}
	writeJSON(w, h.journal.Stats())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}
