package server

import (
	"encoding/json"
	"time"

	"github.com/openfelt/cardroom/internal/table"
)

// MessageType discriminates WebSocket frames in both directions.
type MessageType string

const (
	// Client to server.
	MessageTypeAuth       MessageType = "auth"
	MessageTypeListTables MessageType = "list_tables"
	MessageTypeJoinTable  MessageType = "join_table"
	MessageTypeLeaveTable MessageType = "leave_table"
	MessageTypeAction     MessageType = "action"
	MessageTypeGetState   MessageType = "get_state"

	// Server to client.
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeError        MessageType = "error"
	MessageTypeTableList    MessageType = "table_list"
	MessageTypeTableJoined  MessageType = "table_joined"
	MessageTypeTableLeft    MessageType = "table_left"
	MessageTypeTableState   MessageType = "table_state"
	MessageTypeEvent        MessageType = "event"
)

// Message is the wire envelope for every frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return &Message{Type: messageType, Data: raw, Timestamp: time.Now()}, nil
}

// Client to server payloads.

type AuthData struct {
	PlayerID string `json:"player_id"`
}

type JoinTableData struct {
	TableID string `json:"table_id"`
	Seat    *int   `json:"seat,omitempty"` // nil takes any open seat
	BuyIn   int    `json:"buy_in"`
}

type LeaveTableData struct {
	TableID string `json:"table_id"`
}

type ActionData struct {
	TableID string `json:"table_id"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type GetStateData struct {
	TableID string `json:"table_id"`
}

// Server to client payloads.

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"player_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID        string `json:"id"`
	Variant   string `json:"variant"`
	Structure string `json:"structure"`
	Stakes    string `json:"stakes"`
	Seated    int    `json:"seated"`
	MaxSeats  int    `json:"max_seats"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableJoinedData struct {
	TableID string      `json:"table_id"`
	Seat    int         `json:"seat"`
	State   table.State `json:"state"`
}

type TableLeftData struct {
	TableID string `json:"table_id"`
}

type TableStateData struct {
	TableID string      `json:"table_id"`
	State   table.State `json:"state"`
}

// EventData carries one hand event to a subscribed client. Seq and
// EventType are lifted out of the payload so clients can order and
// dispatch frames without decoding the event itself.
type EventData struct {
	TableID   string          `json:"table_id"`
	Seq       uint64          `json:"seq"`
	EventType string          `json:"event_type"`
	Event     json.RawMessage `json:"event"`
}
