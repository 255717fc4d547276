package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"geoclaim/internal/geo"
	"geoclaim/internal/tracker"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 64 << 10
	clientBuffer = 32
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a token, not cookies, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClaimHub fans claim events out to every connected feed client.
// It implements tracker.Publisher.
type ClaimHub struct {
	clients   map[*feedClient]bool
	broadcast chan tracker.ClaimEvent
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

var _ tracker.Publisher = (*ClaimHub)(nil)

// NewClaimHub creates a hub and starts its broadcast loop.
func NewClaimHub() *ClaimHub {
	hub := &ClaimHub{
		clients:   make(map[*feedClient]bool),
		broadcast: make(chan tracker.ClaimEvent, 100),
		done:      make(chan struct{}),
	}
	go hub.run()
	return hub
}

// run marshals each event once and queues it on every client. Clients whose queue is
// full are dropped.
func (h *ClaimHub) run() {
	for {
		select {
		case <-h.done:
			return
		case ev := <-h.broadcast:
			msg, err := json.Marshal(gin.H{"type": "claim", "claim": ev})
			if err != nil {
				logrus.WithError(err).Error("ClaimHub: failed to encode claim event.")
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logrus.WithField("conn_ptr", fmt.Sprintf("%p", c.conn)).Warn("Claim feed client too slow, disconnecting.")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a claim event without blocking.
func (h *ClaimHub) Publish(ev tracker.ClaimEvent) {
	select {
	case h.broadcast <- ev:
	default:
		logrus.WithField("territory_id", ev.TerritoryID).Warn("Claim broadcast channel full, dropping event.")
	}
}

// Clients returns the number of connected feed clients.
func (h *ClaimHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects every client.
func (h *ClaimHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mu.Lock()
		defer h.mu.Unlock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
	})
}

func (h *ClaimHub) register(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", c.conn)).Info("Client registered with ClaimHub.")
}

func (h *ClaimHub) unregister(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", c.conn)).Info("Client unregistered from ClaimHub.")
}

// writePump owns all writes to a feed connection.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleClaimsWebSocket streams newly claimed territories. Messages from the client
// are ignored.
func (h *ClaimHub) HandleClaimsWebSocket(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.register(client)
	defer h.unregister(client)
	go client.writePump()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logClose(err, userID, "Claim feed")
			return
		}
	}
}

// trackingFrame is a client message on the tracking stream.
type trackingFrame struct {
	Type   string         `json:"type"` // "start", "sample", "cancel", "stop", "session"
	Sample *SamplePayload `json:"sample,omitempty"`
}

// trackingReply answers exactly one trackingFrame.
type trackingReply struct {
	Type    string              `json:"type"`
	Session *tracker.Snapshot   `json:"session,omitempty"`
	Tick    *tracker.Tick       `json:"tick,omitempty"`
	Stop    *tracker.StopResult `json:"stop,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    string              `json:"code,omitempty"`
}

// HandleTrackingWebSocket drives the caller's session over one connection. Frames are
// processed in order and each gets one reply.
func (tc *TrackingController) HandleTrackingWebSocket(c *gin.Context) {
	userID, ok := mustUser(c)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"conn_ptr": fmt.Sprintf("%p", conn),
	}).Info("Tracking WebSocket connection established.")

	wait := tc.PongWait
	if wait <= 0 {
		wait = pongWait
	}
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	done := make(chan struct{})
	defer close(done)
	go keepAlive(conn, wait*9/10, done)

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			logClose(err, userID, "Tracking")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		if messageType != websocket.TextMessage {
			continue
		}

		reply := tc.handleFrame(c, userID, p)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("Failed to write tracking reply.")
			return
		}
	}
}

// keepAlive pings conn until done is closed. WriteControl is safe alongside the reply
// writes of the read loop.
func keepAlive(conn *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (tc *TrackingController) handleFrame(c *gin.Context, userID uint, p []byte) trackingReply {
	var frame trackingFrame
	if err := json.Unmarshal(p, &frame); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"payload": string(p),
		}).Debug("Error unmarshaling tracking frame.")
		return trackingReply{Type: "error", Error: "Invalid frame: " + err.Error(), Code: "invalid_input"}
	}

	ctx := c.Request.Context()
	fail := func(err error) trackingReply {
		_, code := errorCode(err)
		return trackingReply{Type: frame.Type, Error: err.Error(), Code: code}
	}

	switch frame.Type {
	case "start":
		var seed *geo.Sample
		if frame.Sample != nil {
			s := frame.Sample.Sample()
			seed = &s
		}
		snap, err := tc.Tracker.Start(ctx, userID, seed)
		if err != nil {
			return fail(err)
		}
		return trackingReply{Type: frame.Type, Session: &snap}
	case "sample":
		if frame.Sample == nil {
			return trackingReply{Type: frame.Type, Error: "sample frame without sample", Code: "invalid_input"}
		}
		tick, err := tc.Tracker.Submit(ctx, userID, frame.Sample.Sample())
		if err != nil {
			r := fail(err)
			if tick.Kind != "" {
				r.Tick = &tick
			}
			return r
		}
		return trackingReply{Type: frame.Type, Tick: &tick}
	case "cancel":
		if err := tc.Tracker.Cancel(ctx, userID); err != nil {
			return fail(err)
		}
		return trackingReply{Type: frame.Type}
	case "stop":
		res, err := tc.Tracker.Stop(ctx, userID)
		if err != nil {
			return fail(err)
		}
		return trackingReply{Type: frame.Type, Stop: &res}
	case "session":
		snap, found := tc.Tracker.Snapshot(userID)
		if !found {
			return trackingReply{Type: frame.Type, Error: "No tracking session", Code: "not_tracking"}
		}
		return trackingReply{Type: frame.Type, Session: &snap}
	default:
		return trackingReply{Type: "error", Error: fmt.Sprintf("unknown frame type %q", frame.Type), Code: "invalid_input"}
	}
}

func logClose(err error, userID uint, what string) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		logrus.WithField("user_id", userID).Infof("%s WebSocket closed.", what)
		return
	}
	logrus.WithError(err).WithField("user_id", userID).Debugf("%s WebSocket read ended.", what)
}
