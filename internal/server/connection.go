package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/openfelt/cardroom/internal/engine"
	"github.com/openfelt/cardroom/internal/table"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	// eventBuffer sizes per-table subscriptions; a full buffer drops
	// events for that client rather than stalling the table.
	eventBuffer = 256
)

// Connection is one WebSocket client. Inbound frames are handled on
// the read pump; outbound frames funnel through the buffered send
// channel so table fanout never blocks on a slow socket.
type Connection struct {
	ws     *websocket.Conn
	server *Server
	logger *log.Logger

	send chan *Message

	mu       sync.Mutex
	playerID string
	// seated tracks tables this player occupies a seat at, with the
	// subscription cancel for each.
	seated map[string]func()

	closeOnce sync.Once
}

func newConnection(ws *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		logger: logger.With("remote", ws.RemoteAddr().String()),
		send:   make(chan *Message, 256),
		seated: make(map[string]func()),
	}
}

// Start runs the pumps. It returns when the connection drops.
func (c *Connection) Start() {
	go c.writePump()
	c.readPump()
}

// Close tears the socket down; the read pump's exit path handles the
// rest of the cleanup.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		_ = c.ws.Close()
	})
}

// SendMessage queues a frame, dropping the connection if the client
// cannot keep up.
func (c *Connection) SendMessage(msg *Message) {
	defer func() {
		// Send on a closed channel races with teardown; the connection
		// is already gone.
		_ = recover()
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("send buffer full, dropping connection", "player", c.PlayerID())
		c.Close()
	}
}

// PlayerID returns the authenticated player, or "".
func (c *Connection) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *Connection) readPump() {
	defer c.teardown()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read failed", "error", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("bad_message", "malformed frame")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// teardown runs once when the socket drops: the player is marked
// disconnected at every table they occupy, but their seat survives so
// they can reconnect into it.
func (c *Connection) teardown() {
	c.Close()
	c.server.unregister(c)

	c.mu.Lock()
	playerID := c.playerID
	seated := c.seated
	c.seated = map[string]func(){}
	c.mu.Unlock()

	for tableID, cancel := range seated {
		cancel()
		if tbl, ok := c.server.Table(tableID); ok && playerID != "" {
			if err := tbl.SetConnected(playerID, false); err != nil && !errors.Is(err, table.ErrTableClosed) {
				c.logger.Warn("disconnect bookkeeping failed", "table", tableID, "error", err)
			}
		}
	}
	close(c.send)
	if playerID != "" {
		c.logger.Info("client disconnected", "player", playerID)
	}
}

func (c *Connection) handleMessage(msg *Message) {
	if msg.Type != MessageTypeAuth && c.PlayerID() == "" {
		c.sendError("not_authenticated", "authenticate first")
		return
	}

	switch msg.Type {
	case MessageTypeAuth:
		c.handleAuth(msg.Data)
	case MessageTypeListTables:
		c.handleListTables()
	case MessageTypeJoinTable:
		c.handleJoinTable(msg.Data)
	case MessageTypeLeaveTable:
		c.handleLeaveTable(msg.Data)
	case MessageTypeAction:
		c.handleAction(msg.Data)
	case MessageTypeGetState:
		c.handleGetState(msg.Data)
	default:
		c.sendError("unknown_type", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Connection) handleAuth(data json.RawMessage) {
	var auth AuthData
	if err := json.Unmarshal(data, &auth); err != nil || auth.PlayerID == "" {
		c.reply(MessageTypeAuthResponse, AuthResponseData{Success: false, Error: "player_id required"})
		return
	}
	c.mu.Lock()
	c.playerID = auth.PlayerID
	c.mu.Unlock()
	c.logger.Info("client authenticated", "player", auth.PlayerID)
	c.reply(MessageTypeAuthResponse, AuthResponseData{Success: true, PlayerID: auth.PlayerID})
}

func (c *Connection) handleListTables() {
	list, err := c.server.listTables()
	if err != nil {
		c.sendError("request_failed", err.Error())
		return
	}
	c.reply(MessageTypeTableList, list)
}

func (c *Connection) handleJoinTable(data json.RawMessage) {
	var join JoinTableData
	if err := json.Unmarshal(data, &join); err != nil {
		c.sendError("bad_message", "malformed join_table")
		return
	}
	tbl, ok := c.server.Table(join.TableID)
	if !ok {
		c.sendError("unknown_table", fmt.Sprintf("no table %q", join.TableID))
		return
	}
	playerID := c.PlayerID()

	seat, err := c.seatOrReconnect(tbl, playerID, join)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}

	if err := c.subscribe(tbl, playerID); err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}

	st, err := tbl.State()
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.reply(MessageTypeTableJoined, TableJoinedData{TableID: join.TableID, Seat: seat, State: st})
	c.logger.Info("player joined table", "player", playerID, "table", join.TableID, "seat", seat)
}

// seatOrReconnect buys the player in, or reattaches them to a seat
// they already hold after a dropped connection.
func (c *Connection) seatOrReconnect(tbl *table.Table, playerID string, join JoinTableData) (int, error) {
	st, err := tbl.State()
	if err != nil {
		return 0, err
	}
	for _, s := range st.Seats {
		if s.PlayerID == playerID {
			if err := tbl.SetConnected(playerID, true); err != nil {
				return 0, err
			}
			return s.Seat, nil
		}
	}

	seat := -1
	if join.Seat != nil {
		seat = *join.Seat
	}
	return tbl.SeatPlayer(playerID, seat, join.BuyIn)
}

// subscribe attaches the event stream for one table and forwards it to
// the socket until the subscription is cancelled.
func (c *Connection) subscribe(tbl *table.Table, playerID string) error {
	c.mu.Lock()
	if _, ok := c.seated[tbl.ID()]; ok {
		c.mu.Unlock()
		return nil // duplicate join keeps the existing subscription
	}
	c.mu.Unlock()

	ch, cancel, err := tbl.Subscribe(playerID, eventBuffer)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.seated[tbl.ID()] = cancel
	c.mu.Unlock()

	go func() {
		for e := range ch {
			payload, err := json.Marshal(e)
			if err != nil {
				c.logger.Error("encode event", "error", err)
				continue
			}
			c.reply(MessageTypeEvent, EventData{
				TableID:   tbl.ID(),
				Seq:       e.Sequence(),
				EventType: string(e.Type()),
				Event:     payload,
			})
		}
	}()
	return nil
}

func (c *Connection) handleLeaveTable(data json.RawMessage) {
	var leave LeaveTableData
	if err := json.Unmarshal(data, &leave); err != nil {
		c.sendError("bad_message", "malformed leave_table")
		return
	}
	tbl, ok := c.server.Table(leave.TableID)
	if !ok {
		c.sendError("unknown_table", fmt.Sprintf("no table %q", leave.TableID))
		return
	}

	c.mu.Lock()
	cancel := c.seated[leave.TableID]
	delete(c.seated, leave.TableID)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if err := tbl.LeaveTable(c.PlayerID()); err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.reply(MessageTypeTableLeft, TableLeftData{TableID: leave.TableID})
}

func (c *Connection) handleAction(data json.RawMessage) {
	var act ActionData
	if err := json.Unmarshal(data, &act); err != nil {
		c.sendError("bad_message", "malformed action")
		return
	}
	tbl, ok := c.server.Table(act.TableID)
	if !ok {
		c.sendError("unknown_table", fmt.Sprintf("no table %q", act.TableID))
		return
	}
	action, err := engine.ParseActionType(act.Action)
	if err != nil {
		c.sendError("bad_message", err.Error())
		return
	}
	if err := tbl.SubmitAction(c.PlayerID(), action, act.Amount); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) handleGetState(data json.RawMessage) {
	var get GetStateData
	if err := json.Unmarshal(data, &get); err != nil {
		c.sendError("bad_message", "malformed get_state")
		return
	}
	tbl, ok := c.server.Table(get.TableID)
	if !ok {
		c.sendError("unknown_table", fmt.Sprintf("no table %q", get.TableID))
		return
	}
	st, err := tbl.State()
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	c.reply(MessageTypeTableState, TableStateData{TableID: get.TableID, State: st})
}

func (c *Connection) reply(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("encode message", "type", messageType, "error", err)
		return
	}
	c.SendMessage(msg)
}

func (c *Connection) sendError(code, message string) {
	c.reply(MessageTypeError, ErrorData{Code: code, Message: message})
}

// errorCode maps engine and table failures to stable wire codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, engine.ErrInsufficientStack):
		return "insufficient_stack"
	case errors.Is(err, engine.ErrHandComplete):
		return "hand_complete"
	case errors.Is(err, table.ErrTableClosed):
		return "table_closed"
	default:
		return "request_failed"
	}
}
