package server

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfelt/cardroom/internal/config"
	"github.com/openfelt/cardroom/internal/history"
	"github.com/openfelt/cardroom/internal/table"
)

func testRoomConfig() *config.Config {
	return &config.Config{
		Server: config.ServerSettings{Address: "localhost", Port: 8080, LogLevel: "info"},
		Tables: []config.TableConfig{{
			Name:                 "main",
			Variant:              "holdem",
			Structure:            "no_limit",
			SmallBlind:           5,
			BigBlind:             10,
			MaxSeats:             6,
			BuyInMin:             100,
			BuyInMax:             1000,
			ActionTimeoutSeconds: 30,
			TimeBankSeconds:      30,
			HandDelaySeconds:     1,
			SitOutAfterMisses:    3,
		}},
	}
}

func newTestServer(t *testing.T, clock quartz.Clock) (*Server, string) {
	t.Helper()
	logger := log.New(io.Discard)
	srv, err := New(testRoomConfig(), clock, rand.New(rand.NewSource(1)), history.NopWriter{}, table.NopLedger{}, logger)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
		ts.Close()
	})
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

type wsClient struct {
	t  *testing.T
	ws *websocket.Conn
}

func dialClient(t *testing.T, url string) *wsClient {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return &wsClient{t: t, ws: ws}
}

func (c *wsClient) send(messageType MessageType, data interface{}) {
	c.t.Helper()
	msg, err := NewMessage(messageType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.ws.WriteJSON(msg))
}

// waitFor reads frames until one satisfies the predicate. Event frames
// arrive interleaved with replies, so callers match on what they need.
func (c *wsClient) waitFor(pred func(*Message) bool) *Message {
	c.t.Helper()
	require.NoError(c.t, c.ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(c.t, c.ws.ReadJSON(&msg), "timed out waiting for frame")
		if pred(&msg) {
			return &msg
		}
	}
}

func (c *wsClient) waitType(messageType MessageType) *Message {
	c.t.Helper()
	return c.waitFor(func(m *Message) bool { return m.Type == messageType })
}

func (c *wsClient) waitEvent(eventType string) EventData {
	c.t.Helper()
	msg := c.waitFor(func(m *Message) bool {
		if m.Type != MessageTypeEvent {
			return false
		}
		var ev EventData
		require.NoError(c.t, json.Unmarshal(m.Data, &ev))
		return ev.EventType == eventType
	})
	var ev EventData
	require.NoError(c.t, json.Unmarshal(msg.Data, &ev))
	return ev
}

func (c *wsClient) auth(playerID string) {
	c.t.Helper()
	c.send(MessageTypeAuth, AuthData{PlayerID: playerID})
	msg := c.waitType(MessageTypeAuthResponse)
	var resp AuthResponseData
	require.NoError(c.t, json.Unmarshal(msg.Data, &resp))
	require.True(c.t, resp.Success)
}

func (c *wsClient) join(tableID string, buyIn int) TableJoinedData {
	c.t.Helper()
	c.send(MessageTypeJoinTable, JoinTableData{TableID: tableID, BuyIn: buyIn})
	msg := c.waitType(MessageTypeTableJoined)
	var joined TableJoinedData
	require.NoError(c.t, json.Unmarshal(msg.Data, &joined))
	return joined
}

func advanceClock(t *testing.T, clock *quartz.Mock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(d).MustWait(ctx)
}

func TestHealthEndpoint(t *testing.T) {
	_, wsURL := newTestServer(t, quartz.NewMock(t))
	url := "http" + strings.TrimPrefix(wsURL, "ws")
	url = strings.Replace(url, "/ws", "/health", 1)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequiredBeforeOtherMessages(t *testing.T) {
	_, wsURL := newTestServer(t, quartz.NewMock(t))
	c := dialClient(t, wsURL)

	c.send(MessageTypeListTables, nil)
	msg := c.waitType(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "not_authenticated", errData.Code)
}

func TestListTables(t *testing.T) {
	_, wsURL := newTestServer(t, quartz.NewMock(t))
	c := dialClient(t, wsURL)
	c.auth("alice")

	c.send(MessageTypeListTables, nil)
	msg := c.waitType(MessageTypeTableList)
	var list TableListData
	require.NoError(t, json.Unmarshal(msg.Data, &list))
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "main", list.Tables[0].ID)
	assert.Equal(t, "5/10", list.Tables[0].Stakes)
	assert.Equal(t, 0, list.Tables[0].Seated)
}

func TestPlayHandOverWebSocket(t *testing.T) {
	clock := quartz.NewMock(t)
	_, wsURL := newTestServer(t, clock)

	alice := dialClient(t, wsURL)
	alice.auth("alice")
	joined := alice.join("main", 500)
	require.Equal(t, 0, joined.Seat)

	bob := dialClient(t, wsURL)
	bob.auth("bob")
	joined = bob.join("main", 500)
	require.Equal(t, 1, joined.Seat)

	// Both seats are in; the deal fires after the hand delay.
	advanceClock(t, clock, time.Second)

	alice.waitEvent("hand_started")
	bob.waitEvent("hand_started")

	// Hole cards are private: each client sees only its own seat's.
	aliceHole := alice.waitEvent("hole_dealt")
	bobHole := bob.waitEvent("hole_dealt")
	var holeSeat struct {
		Seat int `json:"seat"`
	}
	require.NoError(t, json.Unmarshal(aliceHole.Event, &holeSeat))
	assert.Equal(t, 0, holeSeat.Seat)
	require.NoError(t, json.Unmarshal(bobHole.Event, &holeSeat))
	assert.Equal(t, 1, holeSeat.Seat)

	// Heads up the button posts the small blind and acts first; alice
	// folds, bob collects the blinds.
	alice.send(MessageTypeAction, ActionData{TableID: "main", Action: "fold"})
	alice.waitEvent("hand_ended")
	bob.waitEvent("hand_ended")

	alice.send(MessageTypeGetState, GetStateData{TableID: "main"})
	msg := alice.waitType(MessageTypeTableState)
	var state TableStateData
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	for _, s := range state.State.Seats {
		switch s.PlayerID {
		case "alice":
			assert.Equal(t, 495, s.Stack)
		case "bob":
			assert.Equal(t, 505, s.Stack)
		}
	}
}

func TestActionErrorsReportCodes(t *testing.T) {
	clock := quartz.NewMock(t)
	_, wsURL := newTestServer(t, clock)

	alice := dialClient(t, wsURL)
	alice.auth("alice")
	alice.join("main", 500)
	bob := dialClient(t, wsURL)
	bob.auth("bob")
	bob.join("main", 500)
	advanceClock(t, clock, time.Second)

	// Bob is not to act heads up.
	bob.send(MessageTypeAction, ActionData{TableID: "main", Action: "fold"})
	msg := bob.waitType(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "illegal_action", errData.Code)

	bob.send(MessageTypeAction, ActionData{TableID: "main", Action: "levitate"})
	msg = bob.waitType(MessageTypeError)
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "bad_message", errData.Code)
}

func TestReconnectKeepsSeat(t *testing.T) {
	clock := quartz.NewMock(t)
	srv, wsURL := newTestServer(t, clock)

	alice := dialClient(t, wsURL)
	alice.auth("alice")
	joined := alice.join("main", 500)
	require.Equal(t, 0, joined.Seat)
	_ = alice.ws.Close()

	// The dropped socket marks the seat disconnected but keeps it.
	tbl, ok := srv.Table("main")
	require.True(t, ok)
	require.Eventually(t, func() bool {
		st, err := tbl.State()
		require.NoError(t, err)
		return len(st.Seats) == 1 && !st.Seats[0].Connected
	}, 5*time.Second, 10*time.Millisecond)

	again := dialClient(t, wsURL)
	again.auth("alice")
	joined = again.join("main", 0) // no fresh buy-in on reconnect
	assert.Equal(t, 0, joined.Seat)

	st, err := tbl.State()
	require.NoError(t, err)
	require.Len(t, st.Seats, 1)
	assert.True(t, st.Seats[0].Connected)
	assert.Equal(t, 500, st.Seats[0].Stack)
}

func TestJoinUnknownTable(t *testing.T) {
	_, wsURL := newTestServer(t, quartz.NewMock(t))
	c := dialClient(t, wsURL)
	c.auth("alice")

	c.send(MessageTypeJoinTable, JoinTableData{TableID: "nowhere", BuyIn: 500})
	msg := c.waitType(MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "unknown_table", errData.Code)
}
