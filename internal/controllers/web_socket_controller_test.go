package controllers

import (
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replyBody struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Session *struct {
		State  string `json:"state"`
		Points int    `json:"point_count"`
	} `json:"session"`
	Tick *tickBody `json:"tick"`
	Stop *struct {
		Result *struct {
			Valid bool `json:"is_valid"`
		} `json:"result"`
	} `json:"stop"`
}

type claimFrame struct {
	Type  string `json:"type"`
	Claim struct {
		TerritoryID uint    `json:"territory_id"`
		UserID      uint    `json:"user_id"`
		AreaM2      float64 `json:"area_m2"`
	} `json:"claim"`
}

func wsServer(t *testing.T, userID uint) (*httptest.Server, *ClaimHub) {
	t.Helper()
	hub := NewClaimHub()
	t.Cleanup(hub.Close)
	svc, _ := newService(t, hub)
	tc := NewTrackingController(svc)

	r := gin.New()
	ws := r.Group("/ws", asUser(userID))
	ws.GET("/tracking", tc.HandleTrackingWebSocket)
	ws.GET("/claims", hub.HandleClaimsWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame any) replyBody {
	t.Helper()
	require.NoError(t, conn.WriteJSON(frame))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply replyBody
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestTrackingWebSocketClaimsAndBroadcasts(t *testing.T) {
	t.Parallel()
	srv, hub := wsServer(t, 11)

	feed := dial(t, srv, "/ws/claims")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn := dial(t, srv, "/ws/tracking")
	reply := roundTrip(t, conn, map[string]any{"type": "start"})
	require.Empty(t, reply.Error)
	require.NotNil(t, reply.Session)
	assert.Equal(t, "tracking", reply.Session.State)

	var closed *tickBody
	for _, p := range squarePayloads() {
		reply = roundTrip(t, conn, map[string]any{"type": "sample", "sample": p})
		require.Empty(t, reply.Error)
		require.NotNil(t, reply.Tick)
		if reply.Tick.Kind == "closed" {
			closed = reply.Tick
			break
		}
	}
	require.NotNil(t, closed)
	require.NotNil(t, closed.Result)
	assert.True(t, closed.Result.Valid)

	require.NoError(t, feed.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev claimFrame
	require.NoError(t, feed.ReadJSON(&ev))
	assert.Equal(t, "claim", ev.Type)
	assert.Equal(t, uint(11), ev.Claim.UserID)
	assert.Equal(t, closed.TerritoryID, ev.Claim.TerritoryID)
	assert.InDelta(t, 2304, ev.Claim.AreaM2, 10)

	reply = roundTrip(t, conn, map[string]any{"type": "stop"})
	require.NotNil(t, reply.Stop)
	require.NotNil(t, reply.Stop.Result)
	assert.True(t, reply.Stop.Result.Valid)
}

func TestTrackingWebSocketErrors(t *testing.T) {
	t.Parallel()
	srv, _ := wsServer(t, 12)
	conn := dial(t, srv, "/ws/tracking")

	reply := roundTrip(t, conn, map[string]any{"type": "sample", "sample": squarePayloads()[0]})
	assert.Equal(t, "not_tracking", reply.Code)

	reply = roundTrip(t, conn, map[string]any{"type": "dance"})
	assert.Equal(t, "error", reply.Type)
	assert.Equal(t, "invalid_input", reply.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var bad replyBody
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "invalid_input", bad.Code)

	reply = roundTrip(t, conn, map[string]any{"type": "start"})
	require.Empty(t, reply.Error)
	reply = roundTrip(t, conn, map[string]any{"type": "sample"})
	assert.Equal(t, "invalid_input", reply.Code)

	reply = roundTrip(t, conn, map[string]any{"type": "session"})
	require.NotNil(t, reply.Session)
	assert.Equal(t, "tracking", reply.Session.State)

	reply = roundTrip(t, conn, map[string]any{"type": "cancel"})
	assert.Empty(t, reply.Error)
	reply = roundTrip(t, conn, map[string]any{"type": "session"})
	require.NotNil(t, reply.Session)
	assert.Equal(t, "idle", reply.Session.State)
}

func TestClaimHubDropsClientsOnClose(t *testing.T) {
	t.Parallel()
	srv, hub := wsServer(t, 13)

	feed := dial(t, srv, "/ws/claims")
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTrackingWebSocketKeepAlive(t *testing.T) {
	t.Parallel()
	svc, _ := newService(t, nil)
	tc := NewTrackingController(svc)
	tc.PongWait = 300 * time.Millisecond

	r := gin.New()
	r.GET("/ws/tracking", asUser(14), tc.HandleTrackingWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	active := dial(t, srv, "/ws/tracking")
	for i := 0; i < 6; i++ {
		reply := roundTrip(t, active, map[string]any{"type": "session"})
		assert.Equal(t, "session", reply.Type, "frame %d", i)
		time.Sleep(100 * time.Millisecond)
	}

	// A client that never reads never answers pings.
	silent := dial(t, srv, "/ws/tracking")
	time.Sleep(time.Second)
	require.NoError(t, silent.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		_, _, err = silent.ReadMessage()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "server should have dropped the connection: %v", err)
	}
}
