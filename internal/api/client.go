package api

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// sendQueueBytes is the per-connection outbound budget. A client whose
	// queue holds more than this is considered slow and updates are
	// dropped for it rather than buffered without bound.
	sendQueueBytes = 1_000_000

	// sendQueueFrames bounds the queue length independently of bytes.
	sendQueueFrames = 512

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second

	maxInboundFrameSize = 4096

	// inboundFramesPerSec bounds how fast one connection may push commands.
	inboundFramesPerSec = 120
)

// Client is one websocket connection: its bound player id after join, its
// HUD subscription set and its bounded outbound queue. The read pump runs on
// the connection goroutine; everything it learns is handed to the simulation
// loop through the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	ip   string

	mu       sync.Mutex
	playerID string
	hudSubs  map[string]bool

	send        chan []byte
	sendBytes   int64 // guarded by sendMu, tracks queued payload size
	sendMu      sync.Mutex
	closeOnce   sync.Once
	closed      chan struct{}
	inboundRate *rate.Limiter
}

func newClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		ip:          ip,
		hudSubs:     make(map[string]bool),
		send:        make(chan []byte, sendQueueFrames),
		closed:      make(chan struct{}),
		inboundRate: rate.NewLimiter(inboundFramesPerSec, inboundFramesPerSec/4),
	}
}

// PlayerID returns the bound player id, or "" before join.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *Client) bind(playerID string) {
	c.mu.Lock()
	c.playerID = playerID
	c.mu.Unlock()
}

// subscribed reports whether the client wants the widget key.
func (c *Client) subscribed(widgetKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hudSubs[widgetKey]
}

// updateSubs adds or removes widget keys and returns the keys newly added.
func (c *Client) updateSubs(widgets []string, subscribe bool) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var added []string
	for _, w := range widgets {
		if subscribe {
			if !c.hudSubs[w] {
				c.hudSubs[w] = true
				added = append(added, w)
			}
		} else {
			delete(c.hudSubs, w)
		}
	}
	return added
}

func (c *Client) clearSubs() {
	c.mu.Lock()
	c.hudSubs = make(map[string]bool)
	c.mu.Unlock()
}

// enqueue queues a frame for delivery. Frames for slow clients are dropped;
// the queue never blocks the caller.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	if c.sendBytes+int64(len(data)) > sendQueueBytes {
		c.sendMu.Unlock()
		recordBroadcastDropped()
		return false
	}
	select {
	case c.send <- data:
		c.sendBytes += int64(len(data))
		c.sendMu.Unlock()
		return true
	default:
		c.sendMu.Unlock()
		recordBroadcastDropped()
		return false
	}
}

// writePump drains the send queue onto the socket, in emission order, with
// keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			c.sendMu.Lock()
			c.sendBytes -= int64(len(data))
			c.sendMu.Unlock()

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			recordWSMessage()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

// readPump decodes inbound frames and dispatches them. Runs until the
// connection drops; protocol-invalid frames are logged and skipped, never
// fatal.
func (c *Client) readPump() {
	defer c.hub.disconnect(c)

	c.conn.SetReadLimit(maxInboundFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if !c.inboundRate.Allow() {
			continue // Flooding client; shed silently
		}

		frame, err := DecodeInbound(data)
		if err != nil {
			log.Printf("⚠️ bad frame from %s: %v", c.ip, err)
			continue
		}
		c.hub.handleFrame(c, frame)
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}
