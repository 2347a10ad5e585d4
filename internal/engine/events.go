package engine

import (
	"github.com/openfelt/cardroom/poker"
)

// EventType tags every entry in a hand's ordered event stream.
type EventType string

const (
	EventHandStarted    EventType = "hand_started"
	EventBlindPosted    EventType = "blind_posted"
	EventHoleDealt      EventType = "hole_dealt"
	EventCommunityDealt EventType = "community_dealt"
	EventActionTaken    EventType = "action_taken"
	EventStreetAdvanced EventType = "street_advanced"
	EventPotsUpdated    EventType = "pots_updated"
	EventHandRevealed   EventType = "hand_revealed"
	EventPotsAwarded    EventType = "pots_awarded"
	EventHandEnded      EventType = "hand_ended"
	EventHandAborted    EventType = "hand_aborted"

	// Table-level events, emitted outside any hand's sequence.
	EventSeatJoined EventType = "seat_joined"
	EventSeatLeft   EventType = "seat_left"
)

// Event is one entry in the per-hand stream. Events carry no wall
// clock: the stream alone must reproduce the CompletedHand record
// byte for byte, so everything in it is deterministic.
type Event interface {
	Type() EventType
	Sequence() uint64
}

// seqBase gives every event its position in the hand's stream.
type seqBase struct {
	Seq uint64 `json:"seq"`
}

func (b seqBase) Sequence() uint64 { return b.Seq }

// SeatInfo is a seat's identity and stack at a stream boundary.
type SeatInfo struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Stack    int    `json:"stack"`
}

// Payout is one instruction for the external ledger.
type Payout struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

// HandStarted opens the stream for a hand.
type HandStarted struct {
	seqBase
	HandID     string        `json:"hand_id"`
	TableID    string        `json:"table_id"`
	Variant    poker.Variant `json:"variant"`
	Structure  Structure     `json:"structure"`
	Button     int           `json:"button"`
	SmallBlind int           `json:"small_blind"`
	BigBlind   int           `json:"big_blind"`
	Ante       int           `json:"ante"`
	Seats      []SeatInfo    `json:"seats"`
}

func (HandStarted) Type() EventType { return EventHandStarted }

// BlindPosted records a forced preflop commitment.
type BlindPosted struct {
	seqBase
	Seat   int    `json:"seat"`
	Kind   string `json:"kind"` // "small_blind", "big_blind", "ante"
	Amount int    `json:"amount"`
	AllIn  bool   `json:"all_in"`
}

func (BlindPosted) Type() EventType { return EventBlindPosted }

// HoleDealt carries a seat's hole cards. It is the only private event
// in the stream: transports deliver it to the owning seat alone until
// showdown or a voluntary reveal.
type HoleDealt struct {
	seqBase
	Seat  int          `json:"seat"`
	Cards []poker.Card `json:"cards"`
}

func (HoleDealt) Type() EventType { return EventHoleDealt }

// CommunityDealt records board cards for a street.
type CommunityDealt struct {
	seqBase
	Street Street       `json:"street"`
	Cards  []poker.Card `json:"cards"`
}

func (CommunityDealt) Type() EventType { return EventCommunityDealt }

// ActionTaken records a committed betting action. Forced marks
// timer-injected or disconnect-injected actions.
type ActionTaken struct {
	seqBase
	Seat   int        `json:"seat"`
	Street Street     `json:"street"`
	Action ActionType `json:"action"`
	Amount int        `json:"amount"`
	Forced bool       `json:"forced,omitempty"`
}

func (ActionTaken) Type() EventType { return EventActionTaken }

// StreetAdvanced marks a street transition.
type StreetAdvanced struct {
	seqBase
	Street Street `json:"street"`
}

func (StreetAdvanced) Type() EventType { return EventStreetAdvanced }

// PotsUpdated snapshots the pot layers after a street settles.
type PotsUpdated struct {
	seqBase
	Pots []Pot `json:"pots"`
}

func (PotsUpdated) Type() EventType { return EventPotsUpdated }

// HandRevealed publishes a seat's cards and evaluation at showdown.
type HandRevealed struct {
	seqBase
	Seat     int          `json:"seat"`
	Cards    []poker.Card `json:"cards"`
	HighDesc string       `json:"high_desc"`
	LowDesc  string       `json:"low_desc,omitempty"`
}

func (HandRevealed) Type() EventType { return EventHandRevealed }

// PotsAwarded records the resolution of every pot layer.
type PotsAwarded struct {
	seqBase
	Awards []PotAward `json:"awards"`
}

func (PotsAwarded) Type() EventType { return EventPotsAwarded }

// HandEnded closes the stream: ledger payouts and final stacks.
type HandEnded struct {
	seqBase
	Payouts []Payout   `json:"payouts"`
	Stacks  []SeatInfo `json:"stacks"`
}

func (HandEnded) Type() EventType { return EventHandEnded }

// HandAborted closes the stream abnormally. Refunds return every
// chip still in flight to its contributor; chips are never discarded.
type HandAborted struct {
	seqBase
	Reason  string   `json:"reason"`
	Refunds []Payout `json:"refunds"`
}

func (HandAborted) Type() EventType { return EventHandAborted }

// SeatJoined announces a player taking a seat. It belongs to the table
// stream, not to any hand: Seq is always zero and it never appears in
// a hand record.
type SeatJoined struct {
	seqBase
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Stack    int    `json:"stack"`
}

func (SeatJoined) Type() EventType { return EventSeatJoined }

// SeatLeft announces a seat being freed, with the stack the player
// took away.
type SeatLeft struct {
	seqBase
	Seat     int    `json:"seat"`
	PlayerID string `json:"player_id"`
	Stack    int    `json:"stack"`
}

func (SeatLeft) Type() EventType { return EventSeatLeft }

// IsPrivate reports whether an event must only reach one seat.
func IsPrivate(e Event) (seat int, private bool) {
	if h, ok := e.(HoleDealt); ok {
		return h.Seat, true
	}
	return 0, false
}
