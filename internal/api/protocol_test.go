package api

import (
	"encoding/json"
	"testing"

	"event-arena/internal/arena"
)

// TestDecodeInbound verifies frame decoding and the type requirement
func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, f InboundFrame)
	}{
		{
			"join",
			`{"type":"cmd:join","name":"Alice"}`,
			false,
			func(t *testing.T, f InboundFrame) {
				if f.Type != arena.EventCmdJoin || f.Name != "Alice" {
					t.Errorf("frame = %+v", f)
				}
			},
		},
		{
			"move with direction",
			`{"type":"cmd:move","dir":{"x":1,"y":-0.5}}`,
			false,
			func(t *testing.T, f InboundFrame) {
				if f.Dir == nil || f.Dir.X != 1 || f.Dir.Y != -0.5 {
					t.Errorf("dir = %+v", f.Dir)
				}
			},
		},
		{
			"cast",
			`{"type":"cmd:cast","skill":"skill:rocket"}`,
			false,
			func(t *testing.T, f InboundFrame) {
				if f.Skill != arena.SkillRocket {
					t.Errorf("skill = %s", f.Skill)
				}
			},
		},
		{
			"hud subscribe",
			`{"type":"cmd:hud:subscribe","widgets":["scoreboard","feed"]}`,
			false,
			func(t *testing.T, f InboundFrame) {
				if len(f.Widgets) != 2 {
					t.Errorf("widgets = %v", f.Widgets)
				}
			},
		},
		{"bad json", `{"type":`, true, nil},
		{"missing type", `{"name":"x"}`, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeInbound([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, f)
			}
		})
	}
}

// TestMarshalEventFrame verifies the spliced type discriminator
func TestMarshalEventFrame(t *testing.T) {
	data, err := MarshalEventFrame(arena.PlayerMoveEvent{PlayerID: "p1", Pos: arena.Vec2{X: 10, Y: 20}})
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("frame is not valid JSON: %v\n%s", err, data)
	}
	if decoded["type"] != "player:move" {
		t.Errorf("type = %v", decoded["type"])
	}
	if decoded["playerId"] != "p1" {
		t.Errorf("playerId = %v", decoded["playerId"])
	}
	pos := decoded["pos"].(map[string]interface{})
	if pos["x"].(float64) != 10 {
		t.Errorf("pos = %v", pos)
	}
}

// emptyEvent is an event type with no fields; it marshals to "{}".
type emptyEvent struct{}

func (emptyEvent) Type() string { return "test:empty" }

// TestMarshalEventFrameEmptyPayload verifies events with no fields still
// produce valid frames
func TestMarshalEventFrameEmptyPayload(t *testing.T) {
	data, err := MarshalEventFrame(emptyEvent{})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %s", data)
	}
	if decoded["type"] != "test:empty" {
		t.Errorf("type = %v", decoded["type"])
	}
}

// TestBroadcastAllowlistExcludesPrivate verifies player:dead never fans out
func TestBroadcastAllowlistExcludesPrivate(t *testing.T) {
	for _, bt := range BroadcastTypes {
		if bt == arena.EventPlayerDead {
			t.Fatal("player:dead is in the broadcast allowlist")
		}
		if bt == arena.EventTickPre || bt == arena.EventTickPost {
			t.Fatal("tick events are in the broadcast allowlist")
		}
	}
}

// TestFilterWidgets verifies unknown widget keys are discarded
func TestFilterWidgets(t *testing.T) {
	got := filterWidgets([]string{"scoreboard", "bogus", "feed", ""})
	if len(got) != 2 || got[0] != "scoreboard" || got[1] != "feed" {
		t.Errorf("filtered = %v", got)
	}
}
