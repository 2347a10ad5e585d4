package engine

import (
	"time"

	"github.com/openfelt/cardroom/poker"
)

// SeatStatus tracks a seat's participation in the current hand.
type SeatStatus uint8

const (
	SeatWaiting SeatStatus = iota
	SeatSittingOut
	SeatActive
	SeatFolded
	SeatAllIn
	SeatDisconnected
)

func (s SeatStatus) String() string {
	return [...]string{"waiting", "sitting_out", "active", "folded", "all_in", "disconnected"}[s]
}

// Seat is one position at the table during a hand. StreetBet and
// HandBet are kept strictly separate: StreetBet resets every street
// while HandBet accumulates for side-pot layering. Stack+HandBet is
// conserved for the whole hand until pots are awarded.
type Seat struct {
	Index      int
	PlayerID   string
	Stack      int
	StreetBet  int
	HandBet    int
	Hole       []poker.Card
	Status     SeatStatus
	TimeBank   time.Duration
	StartStack int
}

// InHand reports whether the seat still has a claim on any pot.
func (s *Seat) InHand() bool {
	return s.Status == SeatActive || s.Status == SeatAllIn
}

// CanAct reports whether the seat can still take betting actions.
func (s *Seat) CanAct() bool {
	return s.Status == SeatActive
}

// commit moves chips from the stack into the seat's street bet,
// capping at the stack and flipping to all-in when it empties.
// Returns the amount actually committed.
func (s *Seat) commit(amount int) int {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.StreetBet += amount
	if s.Stack == 0 && s.Status == SeatActive {
		s.Status = SeatAllIn
	}
	return amount
}
