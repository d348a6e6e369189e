package hud

import (
	"sort"

	"event-arena/internal/arena"
)

// ScoreboardRow is one line of the scoreboard widget.
type ScoreboardRow struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Kills    int    `json:"kills"`
	Deaths   int    `json:"deaths"`
	Assists  int    `json:"assists"`
	HP       int    `json:"hp"`
	IsDead   bool   `json:"isDead"`
}

// ScoreboardWidget projects the live score table, sorted by kills descending,
// deaths ascending, then name.
type ScoreboardWidget struct {
	world *arena.World
}

// NewScoreboardWidget creates the scoreboard over the world.
func NewScoreboardWidget(world *arena.World) *ScoreboardWidget {
	return &ScoreboardWidget{world: world}
}

// Key implements Widget.
func (w *ScoreboardWidget) Key() string { return KeyScoreboard }

// OnEvent implements Widget.
func (w *ScoreboardWidget) OnEvent(e arena.Event, now int64) bool {
	switch e.Type() {
	case arena.EventScoreUpdate, arena.EventPlayerJoin, arena.EventPlayerLeave, arena.EventPlayerDie:
		return true
	}
	return false
}

// Snapshot implements Widget.
func (w *ScoreboardWidget) Snapshot(now int64) UpdateMessage {
	rows := make([]ScoreboardRow, 0, len(w.world.Players))
	for _, p := range w.world.Players {
		rows = append(rows, ScoreboardRow{
			PlayerID: p.ID,
			Name:     p.Name,
			Kills:    p.Stats.Kills,
			Deaths:   p.Stats.Deaths,
			Assists:  p.Stats.Assists,
			HP:       p.HP,
			IsDead:   p.IsDead,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Kills != rows[j].Kills {
			return rows[i].Kills > rows[j].Kills
		}
		if rows[i].Deaths != rows[j].Deaths {
			return rows[i].Deaths < rows[j].Deaths
		}
		return rows[i].Name < rows[j].Name
	})

	return UpdateMessage{Type: "hud:scoreboard:update", Data: rows}
}
