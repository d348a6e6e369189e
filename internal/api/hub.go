package api

import (
	"log"
	"net/http"
	"sync"

	"event-arena/internal/arena"
	"event-arena/internal/hud"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// MaxConnectionsTotal caps concurrent websocket connections.
	MaxConnectionsTotal = 500

	// MaxConnectionsPerIP caps connections from one address.
	MaxConnectionsPerIP = 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The protocol carries no authentication; origin is not a trust
		// boundary here.
		return true
	},
}

// Hub is the transport adapter: it owns every websocket connection, decodes
// inbound frames into command events on the simulation loop, fans allowlisted
// events out to all clients and routes HUD updates to subscribers.
type Hub struct {
	engine     *arena.Engine
	dispatcher *hud.Dispatcher

	mu      sync.RWMutex
	clients map[*Client]bool
	byID    map[string]*Client // bound player id -> client

	connLimiter *ConnLimiter
}

// NewHub creates the hub. Wire attaches it to the bus.
func NewHub(engine *arena.Engine) *Hub {
	return &Hub{
		engine:      engine,
		clients:     make(map[*Client]bool),
		byID:        make(map[string]*Client),
		connLimiter: NewConnLimiter(MaxConnectionsPerIP),
	}
}

// SetDispatcher injects the HUD dispatcher after construction (the
// dispatcher needs the hub as its sender).
func (h *Hub) SetDispatcher(d *hud.Dispatcher) {
	h.dispatcher = d
}

// AttachBus subscribes the broadcast fan-out and the private death channel.
// Must be called before the engine starts.
func (h *Hub) AttachBus() {
	h.engine.Bus().OnEach(BroadcastTypes, h.broadcastEvent)
	h.engine.Bus().On(arena.EventPlayerDead, func(e arena.Event) {
		h.sendPrivate(e.(arena.PlayerDeadEvent))
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and runs the connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if h.ClientCount() >= MaxConnectionsTotal {
		recordConnectionRejected("total_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.connLimiter.Acquire(ip) {
		recordConnectionRejected("ip_limit")
		http.Error(w, "too many connections from your address", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.connLimiter.Release(ip)
		log.Printf("⚠️ websocket upgrade failed: %v", err)
		return
	}

	client := newClient(h, conn, ip)
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	updateWSConnections(count)
	log.Printf("📱 client connected from %s (%d total)", ip, count)

	go client.writePump()
	h.welcome(client)
	go client.readPump()
}

// welcome sends the connection preamble: connected, the obstacle map and
// every pickup currently alive. World reads run on the simulation loop.
func (h *Hub) welcome(client *Client) {
	e := h.engine
	e.Do(func() {
		frames := make([][]byte, 0, 2+len(e.World().Pickups))

		if data, err := MarshalFrame(connectedFrame{Type: "connected", TS: e.NowMs()}); err == nil {
			frames = append(frames, data)
		}
		if data, err := MarshalFrame(mapLoadedFrame{Type: "map:loaded", Obstacles: e.World().Obstacles}); err == nil {
			frames = append(frames, data)
		}
		for _, p := range e.World().Pickups {
			ev := arena.PickupSpawnedEvent{PickupID: p.ID, Pos: p.Pos, Kind: p.Kind}
			if data, err := MarshalEventFrame(ev); err == nil {
				frames = append(frames, data)
			}
		}
		for _, f := range frames {
			client.enqueue(f)
		}
	})
}

// disconnect tears a connection down: HUD subs cleared, slot released and a
// leave command drains the player at the next dispatch.
func (h *Hub) disconnect(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	if id := client.PlayerID(); id != "" {
		delete(h.byID, id)
	}
	count := len(h.clients)
	h.mu.Unlock()

	client.clearSubs()
	client.close()
	h.connLimiter.Release(client.ip)
	updateWSConnections(count)
	log.Printf("📱 client disconnected (%d remaining)", count)

	if id := client.PlayerID(); id != "" {
		h.engine.Emit(arena.LeaveCmdEvent{PlayerID: id})
	}
}

// handleFrame dispatches one decoded inbound frame. Runs on the connection's
// read goroutine; all simulation access goes through the loop.
func (h *Hub) handleFrame(client *Client, frame InboundFrame) {
	switch frame.Type {
	case arena.EventCmdJoin:
		h.handleJoin(client, frame.Name)

	case arena.EventCmdHudSubscribe:
		h.handleHudSubscribe(client, frame.Widgets)

	case arena.EventCmdHudUnsubscribe:
		client.updateSubs(filterWidgets(frame.Widgets), false)

	case arena.EventCmdLeave:
		if id := client.PlayerID(); id != "" {
			h.engine.Emit(arena.LeaveCmdEvent{PlayerID: id})
		}

	case arena.EventCmdMove:
		if id, dir := client.PlayerID(), frame.Dir; id != "" && dir != nil {
			h.engine.Emit(arena.MoveCmdEvent{PlayerID: id, Dir: *dir})
		}

	case arena.EventCmdAim:
		if id, dir := client.PlayerID(), frame.Dir; id != "" && dir != nil {
			h.engine.Emit(arena.AimCmdEvent{PlayerID: id, Dir: *dir})
		}

	case arena.EventCmdCast:
		if id := client.PlayerID(); id != "" {
			h.engine.Emit(arena.CastCmdEvent{PlayerID: id, Skill: frame.Skill})
		}

	case arena.EventCmdRespawn:
		if id := client.PlayerID(); id != "" {
			h.engine.Emit(arena.RespawnCmdEvent{PlayerID: id})
		}

	default:
		log.Printf("⚠️ unknown command %q from %s", frame.Type, client.ip)
	}
}

// handleJoin allocates the player id, binds the connection, sends the
// private session roster and then emits the join command.
func (h *Hub) handleJoin(client *Client, name string) {
	if client.PlayerID() != "" {
		return // Already joined
	}
	if name == "" {
		name = "anon"
	}

	playerID := uuid.NewString()
	client.bind(playerID)

	h.mu.Lock()
	h.byID[playerID] = client
	h.mu.Unlock()

	e := h.engine
	e.Do(func() {
		roster := make([]sessionPlayer, 0, len(e.World().Players))
		for _, p := range e.World().Players {
			roster = append(roster, sessionPlayer{PlayerID: p.ID, Name: p.Name, Pos: p.Pos})
		}

		var match *sessionMatch
		if m := e.Match().Current(); m != nil {
			match = &sessionMatch{
				ID: m.ID, Mode: m.Mode, Phase: m.Phase,
				StartsAt: m.StartsAt, EndsAt: m.EndsAt,
			}
		}

		frame := sessionStartedFrame{
			Type:     "session:started",
			PlayerID: playerID,
			Name:     name,
			Players:  roster,
			Match:    match,
		}
		if data, err := MarshalFrame(frame); err == nil {
			client.enqueue(data)
		}

		e.Bus().Emit(arena.JoinCmdEvent{PlayerID: playerID, Name: name})
	})
}

// handleHudSubscribe updates the subscription set and pushes an immediate
// snapshot for each newly added widget, to this connection only.
func (h *Hub) handleHudSubscribe(client *Client, widgets []string) {
	added := client.updateSubs(filterWidgets(widgets), true)
	if len(added) == 0 || h.dispatcher == nil {
		return
	}

	h.engine.Do(func() {
		for _, key := range added {
			msg, ok := h.dispatcher.SnapshotFor(key)
			if !ok {
				continue
			}
			if data, err := MarshalFrame(msg); err == nil {
				client.enqueue(data)
			}
		}
	})
}

// broadcastEvent fans one allowlisted event to every connection. The frame
// is serialized once and shared. Runs on the simulation loop; the per-client
// enqueue never blocks.
func (h *Hub) broadcastEvent(e arena.Event) {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	if n == 0 {
		return
	}

	data, err := MarshalEventFrame(e)
	if err != nil {
		log.Printf("⚠️ broadcast encode failed for %s: %v", e.Type(), err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.enqueue(data)
	}
}

// sendPrivate delivers player:dead to the dying player's connection only.
func (h *Hub) sendPrivate(ev arena.PlayerDeadEvent) {
	h.mu.RLock()
	client := h.byID[ev.PlayerID]
	h.mu.RUnlock()
	if client == nil {
		return // Bot or already disconnected
	}
	if data, err := MarshalEventFrame(ev); err == nil {
		client.enqueue(data)
	}
}

// SendToSubscribers implements hud.Sender: the update goes only to
// connections whose subscription set contains the widget key.
func (h *Hub) SendToSubscribers(widgetKey string, msg hud.UpdateMessage) {
	data, err := MarshalFrame(msg)
	if err != nil {
		log.Printf("⚠️ hud encode failed for %s: %v", widgetKey, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.subscribed(widgetKey) {
			client.enqueue(data)
		}
	}
}

// filterWidgets keeps only allowed widget keys.
func filterWidgets(widgets []string) []string {
	out := widgets[:0:0]
	for _, w := range widgets {
		if hud.AllowedKeys[w] {
			out = append(out, w)
		}
	}
	return out
}

// clientIP extracts the requester address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host := r.RemoteAddr
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host[:i]
		}
	}
	return host
}
