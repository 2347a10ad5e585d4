package engine

import (
	"fmt"

	"github.com/openfelt/cardroom/poker"
)

// SeatSummary is one seat's line in the hand record.
type SeatSummary struct {
	Seat       int          `json:"seat"`
	PlayerID   string       `json:"player_id"`
	StartStack int          `json:"start_stack"`
	EndStack   int          `json:"end_stack"`
	Hole       []poker.Card `json:"hole,omitempty"`
	Folded     bool         `json:"folded,omitempty"`
	ShowedDown bool         `json:"showed_down,omitempty"`
}

// ActionRecord is one betting action in the record.
type ActionRecord struct {
	Seq    uint64     `json:"seq"`
	Street Street     `json:"street"`
	Seat   int        `json:"seat"`
	Action ActionType `json:"action"`
	Amount int        `json:"amount"`
	Forced bool       `json:"forced,omitempty"`
}

// CompletedHand is the immutable record of a finished hand. It is a
// pure fold over the hand's event stream: replaying the same events
// always rebuilds the identical record.
type CompletedHand struct {
	HandID     string        `json:"hand_id"`
	TableID    string        `json:"table_id"`
	Variant    poker.Variant `json:"variant"`
	Structure  Structure     `json:"structure"`
	Button     int           `json:"button"`
	SmallBlind int           `json:"small_blind"`
	BigBlind   int           `json:"big_blind"`
	Ante       int           `json:"ante"`

	Seats   []SeatSummary  `json:"seats"`
	Board   []poker.Card   `json:"board,omitempty"`
	Actions []ActionRecord `json:"actions"`
	Pots    []Pot          `json:"pots,omitempty"`
	Awards  []PotAward     `json:"awards,omitempty"`
	Payouts []Payout       `json:"payouts,omitempty"`

	Aborted     bool     `json:"aborted,omitempty"`
	AbortReason string   `json:"abort_reason,omitempty"`
	Refunds     []Payout `json:"refunds,omitempty"`

	FinalSeq uint64 `json:"final_seq"`
}

// BuildCompletedHand folds an ordered event stream into the hand
// record. The stream must open with HandStarted and close with
// HandEnded or HandAborted.
func BuildCompletedHand(events []Event) (*CompletedHand, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("empty event stream")
	}
	start, ok := events[0].(HandStarted)
	if !ok {
		return nil, fmt.Errorf("stream opens with %s, want %s", events[0].Type(), EventHandStarted)
	}

	rec := &CompletedHand{
		HandID:     start.HandID,
		TableID:    start.TableID,
		Variant:    start.Variant,
		Structure:  start.Structure,
		Button:     start.Button,
		SmallBlind: start.SmallBlind,
		BigBlind:   start.BigBlind,
		Ante:       start.Ante,
	}
	// bySeat holds indices, not pointers: rec.Seats keeps growing and
	// every append may move the backing array.
	bySeat := map[int]int{}
	rec.Seats = make([]SeatSummary, 0, len(start.Seats))
	for _, si := range start.Seats {
		bySeat[si.Seat] = len(rec.Seats)
		rec.Seats = append(rec.Seats, SeatSummary{Seat: si.Seat, PlayerID: si.PlayerID, StartStack: si.Stack})
	}

	closed := false
	var prevSeq uint64
	for i, e := range events {
		if i > 0 && e.Sequence() <= prevSeq {
			return nil, fmt.Errorf("event %s out of order: seq %d after %d", e.Type(), e.Sequence(), prevSeq)
		}
		prevSeq = e.Sequence()
		if closed {
			return nil, fmt.Errorf("event %s after stream close", e.Type())
		}

		switch ev := e.(type) {
		case HandStarted:
		case BlindPosted:
		case HoleDealt:
			// Hole cards reach the record only through HandRevealed;
			// folded, never-shown hands stay private.
		case CommunityDealt:
			rec.Board = append(rec.Board, ev.Cards...)
		case ActionTaken:
			rec.Actions = append(rec.Actions, ActionRecord{
				Seq:    ev.Seq,
				Street: ev.Street,
				Seat:   ev.Seat,
				Action: ev.Action,
				Amount: ev.Amount,
				Forced: ev.Forced,
			})
			if ev.Action == Fold {
				if i, ok := bySeat[ev.Seat]; ok {
					rec.Seats[i].Folded = true
				}
			}
		case StreetAdvanced:
		case PotsUpdated:
			rec.Pots = ev.Pots
		case HandRevealed:
			if i, ok := bySeat[ev.Seat]; ok {
				rec.Seats[i].ShowedDown = true
				rec.Seats[i].Hole = ev.Cards
			}
		case PotsAwarded:
			rec.Awards = ev.Awards
		case HandEnded:
			rec.Payouts = ev.Payouts
			for _, si := range ev.Stacks {
				if i, ok := bySeat[si.Seat]; ok {
					rec.Seats[i].EndStack = si.Stack
				}
			}
			rec.FinalSeq = ev.Seq
			closed = true
		case HandAborted:
			rec.Aborted = true
			rec.AbortReason = ev.Reason
			rec.Refunds = ev.Refunds
			for i := range rec.Seats {
				rec.Seats[i].EndStack = rec.Seats[i].StartStack
			}
			rec.FinalSeq = ev.Seq
			closed = true
		default:
			return nil, fmt.Errorf("unknown event type %s", e.Type())
		}
	}
	if !closed {
		return nil, fmt.Errorf("stream does not close with %s or %s", EventHandEnded, EventHandAborted)
	}
	return rec, nil
}
