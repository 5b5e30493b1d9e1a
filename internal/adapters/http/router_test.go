package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wssignal "github.com/ankern/pairline/internal/adapters/signal"
	"github.com/ankern/pairline/internal/app"
	"github.com/ankern/pairline/internal/config"
	"github.com/ankern/pairline/internal/core"
)

func newTestServer(t *testing.T) (*httptest.Server, *core.Registry) {
	t.Helper()
	cfg := &config.Config{
		Mode:         "release",
		ReadLimit:    32768,
		PingPeriod:   54 * time.Second,
		Secret:       "test-secret",
		JoinLimit:    100,
		JoinInterval: time.Minute,
	}
	reg := core.NewRegistry()
	ctl := wssignal.NewController(app.NewHandler(reg), cfg)
	srv := httptest.NewServer(SetupRouter(context.Background(), cfg, reg, ctl))
	t.Cleanup(srv.Close)
	return srv, reg
}

func dialSignal(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/signal"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, c *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func sendEvent(t *testing.T, c *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, c.WriteJSON(v))
}

func TestRootHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListRoomsUnknownCommunity(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/communities/nowhere/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rooms []core.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.Empty(t, rooms)
}

func TestCreateAndListRooms(t *testing.T) {
	srv, reg := newTestServer(t)

	resp, err := http.Post(srv.URL+"/communities/c1/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created struct {
		RoomID string `json:"roomId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.RoomID)

	listResp, err := http.Get(srv.URL + "/communities/c1/rooms")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var rooms []core.RoomInfo
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, created.RoomID, string(rooms[0].ID))
	assert.Equal(t, 0, rooms[0].Participants)

	assert.Len(t, reg.ListRooms("c1"), 1)
}

func TestCORSHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/communities/c1/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketPairingFlow(t *testing.T) {
	srv, reg := newTestServer(t)

	connA := dialSignal(t, srv)
	connB := dialSignal(t, srv)

	idEvtA := readEvent(t, connA)
	require.Equal(t, "identity-assigned", idEvtA["type"])
	idA := idEvtA["id"].(string)
	require.NotEmpty(t, idA)

	idEvtB := readEvent(t, connB)
	require.Equal(t, "identity-assigned", idEvtB["type"])
	idB := idEvtB["id"].(string)
	require.NotEqual(t, idA, idB)

	roomID := reg.CreateRoom("c1")

	sendEvent(t, connA, map[string]any{"type": "join-room", "roomId": string(roomID)})
	// Joins run on separate connection goroutines; make sure A landed
	// before B follows.
	require.Eventually(t, func() bool {
		rooms := reg.ListRooms("c1")
		return len(rooms) == 1 && rooms[0].Participants == 1
	}, 2*time.Second, 10*time.Millisecond)
	sendEvent(t, connB, map[string]any{"type": "join-room", "roomId": string(roomID)})

	joined := readEvent(t, connA)
	assert.Equal(t, "participant-joined", joined["type"])
	assert.Equal(t, idB, joined["connectionId"])

	sendEvent(t, connB, map[string]any{
		"type":       "call-offer",
		"roomId":     string(roomID),
		"signalData": map[string]any{"sdp": "v=0"},
		"from":       idB,
		"name":       "Bob",
	})
	offer := readEvent(t, connA)
	assert.Equal(t, "call-offer", offer["type"])
	assert.Equal(t, idB, offer["from"])
	assert.Equal(t, "Bob", offer["name"])
	assert.Equal(t, map[string]any{"sdp": "v=0"}, offer["signalData"])

	require.NoError(t, connB.Close())
	left := readEvent(t, connA)
	assert.Equal(t, "participant-left", left["type"])
	assert.Equal(t, idB, left["connectionId"])

	rooms := reg.ListRooms("c1")
	require.Len(t, rooms, 1)
	assert.Equal(t, 1, rooms[0].Participants)
}

func TestWebsocketJoinErrors(t *testing.T) {
	srv, reg := newTestServer(t)

	conn := dialSignal(t, srv)
	require.Equal(t, "identity-assigned", readEvent(t, conn)["type"])

	sendEvent(t, conn, map[string]any{"type": "join-room", "roomId": "no-such-room"})
	evt := readEvent(t, conn)
	assert.Equal(t, "error", evt["type"])
	assert.Equal(t, "room does not exist", evt["error"])

	assert.Empty(t, reg.ListRooms("c1"))
}

func TestWebsocketPing(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialSignal(t, srv)
	require.Equal(t, "identity-assigned", readEvent(t, conn)["type"])

	sendEvent(t, conn, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", readEvent(t, conn)["type"])
}

func TestWebsocketDirectInvite(t *testing.T) {
	srv, _ := newTestServer(t)

	connA := dialSignal(t, srv)
	connB := dialSignal(t, srv)

	idA := readEvent(t, connA)["id"].(string)
	idB := readEvent(t, connB)["id"].(string)

	// Neither side is in a room; the invite still reaches the target.
	sendEvent(t, connA, map[string]any{
		"type":               "direct-call-invite",
		"targetConnectionId": idB,
		"signalData":         map[string]any{"sdp": "ring"},
		"from":               idA,
		"name":               "Alice",
	})

	evt := readEvent(t, connB)
	assert.Equal(t, "direct-call-invite", evt["type"])
	assert.Equal(t, idA, evt["from"])
	assert.Equal(t, "Alice", evt["name"])
	assert.Equal(t, map[string]any{"sdp": "ring"}, evt["signalData"])
}
