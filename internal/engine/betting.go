package engine

import "fmt"

// Street is one betting phase of a hand.
type Street uint8

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// ActionType is a player betting action.
type ActionType uint8

const (
	Fold ActionType = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionType) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseActionType converts wire strings into actions.
func ParseActionType(s string) (ActionType, error) {
	for a := Fold; a <= AllIn; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Structure selects the betting-size rules for the table.
type Structure string

const (
	NoLimit  Structure = "no_limit"
	PotLimit Structure = "pot_limit"
)

// ParseStructure validates a configuration string.
func ParseStructure(s string) (Structure, error) {
	switch Structure(s) {
	case NoLimit, PotLimit:
		return Structure(s), nil
	}
	return "", fmt.Errorf("unknown betting structure %q", s)
}

// ActionOption is one legal action with its size bounds. Min and Max
// are bet-to amounts for Bet/Raise and fixed commitments otherwise.
type ActionOption struct {
	Action ActionType
	Min    int
	Max    int
}

// BettingRound enforces turn order arithmetic for one street: the
// outstanding bet, the minimum raise increment, and which seats have
// acted since the last full raise. It is created fresh at every street
// transition and discarded when the street closes.
type BettingRound struct {
	Street        Street
	CurrentBet    int
	MinRaise      int
	LastAggressor int
	Structure     Structure

	bigBlind int
	acted    []bool
}

// NewBettingRound starts a fresh street. The minimum raise resets to
// the big blind at every street.
func NewBettingRound(street Street, numSeats, bigBlind int, structure Structure) *BettingRound {
	return &BettingRound{
		Street:        street,
		CurrentBet:    0,
		MinRaise:      bigBlind,
		LastAggressor: -1,
		Structure:     structure,
		bigBlind:      bigBlind,
		acted:         make([]bool, numSeats),
	}
}

// markActed records that a seat has acted since the last full raise.
func (br *BettingRound) markActed(seat int) {
	if seat >= 0 && seat < len(br.acted) {
		br.acted[seat] = true
	}
}

// reopen clears acted flags after a full bet or raise: every other
// live seat must act again and may raise.
func (br *BettingRound) reopen(aggressor int) {
	for i := range br.acted {
		br.acted[i] = false
	}
	br.markActed(aggressor)
	br.LastAggressor = aggressor
}

// maxBetTo returns the largest legal bet-to amount before stack
// capping. Pot limit caps at the pot after a hypothetical call.
func (br *BettingRound) maxBetTo(seat *Seat, potTotal int) int {
	toCall := br.CurrentBet - seat.StreetBet
	switch br.Structure {
	case PotLimit:
		return br.CurrentBet + toCall + potTotal
	default:
		return seat.StreetBet + seat.Stack
	}
}

// LegalActions computes the action set for a seat from the outstanding
// bet, the seat's street bet, and its stack. potTotal is the total of
// all pots including uncollected street bets, used for pot-limit caps.
func (br *BettingRound) LegalActions(seat *Seat, potTotal int) []ActionOption {
	if !seat.CanAct() {
		return nil
	}
	toCall := br.CurrentBet - seat.StreetBet
	maxTo := br.maxBetTo(seat, potTotal)
	stackTo := seat.StreetBet + seat.Stack
	if maxTo > stackTo {
		maxTo = stackTo
	}

	var opts []ActionOption
	if toCall == 0 {
		opts = append(opts, ActionOption{Action: Check})
		if seat.Stack > 0 {
			if br.CurrentBet == 0 {
				minBet := br.bigBlind
				if minBet > stackTo {
					minBet = stackTo
				}
				opts = append(opts, ActionOption{Action: Bet, Min: minBet, Max: maxTo})
			} else if !br.acted[seat.Index] {
				// Big blind option: the bet is matched but unraised.
				minTo := br.CurrentBet + br.MinRaise
				if minTo > stackTo {
					minTo = stackTo
				}
				opts = append(opts, ActionOption{Action: Raise, Min: minTo, Max: maxTo})
			}
		}
	} else {
		opts = append(opts, ActionOption{Action: Fold})
		if seat.Stack >= toCall {
			opts = append(opts, ActionOption{Action: Call, Min: toCall, Max: toCall})
		}
		if seat.Stack > toCall && !br.acted[seat.Index] {
			minTo := br.CurrentBet + br.MinRaise
			if minTo > stackTo {
				minTo = stackTo
			}
			opts = append(opts, ActionOption{Action: Raise, Min: minTo, Max: maxTo})
		}
	}
	if seat.Stack > 0 {
		allTo := stackTo
		if br.Structure == PotLimit && allTo > br.CurrentBet && allTo > maxTo {
			// Pot limit: a shove above the pot cap is truncated to it.
			allTo = maxTo
		}
		opts = append(opts, ActionOption{Action: AllIn, Min: allTo, Max: allTo})
	}
	return opts
}

// validate rejects an action without mutating anything. amount carries
// bet-to semantics for Bet and Raise and is ignored otherwise.
func (br *BettingRound) validate(seat *Seat, action ActionType, amount, potTotal int) error {
	toCall := br.CurrentBet - seat.StreetBet
	stackTo := seat.StreetBet + seat.Stack

	switch action {
	case Fold:
		if toCall == 0 {
			return illegal(seat.Index, action, ReasonNotLegal, "nothing to fold to, check instead")
		}
	case Check:
		if toCall != 0 {
			return illegal(seat.Index, action, ReasonNotLegal, fmt.Sprintf("%d to call", toCall))
		}
	case Call:
		if toCall == 0 {
			return illegal(seat.Index, action, ReasonNotLegal, "no outstanding bet")
		}
		if seat.Stack < toCall {
			return &InsufficientStackError{Seat: seat.Index, Requested: toCall, Stack: seat.Stack}
		}
	case Bet:
		if br.CurrentBet != 0 {
			return illegal(seat.Index, action, ReasonNotLegal, "bet already open, raise instead")
		}
		if seat.Stack == 0 {
			return &InsufficientStackError{Seat: seat.Index, Requested: amount, Stack: 0}
		}
		if amount > stackTo {
			return &InsufficientStackError{Seat: seat.Index, Requested: amount, Stack: seat.Stack}
		}
		if amount < br.bigBlind && amount != stackTo {
			return illegal(seat.Index, action, ReasonBadAmount, fmt.Sprintf("minimum bet %d", br.bigBlind))
		}
		if max := br.maxBetTo(seat, potTotal); amount > max {
			return illegal(seat.Index, action, ReasonAboveMaxBet, fmt.Sprintf("maximum bet %d", max))
		}
	case Raise:
		if br.CurrentBet == 0 {
			return illegal(seat.Index, action, ReasonNotLegal, "no bet to raise")
		}
		if seat.Stack <= toCall {
			return &InsufficientStackError{Seat: seat.Index, Requested: amount, Stack: seat.Stack}
		}
		if br.acted[seat.Index] {
			return illegal(seat.Index, action, ReasonNotReopened, "short all-in does not reopen betting")
		}
		if amount > stackTo {
			return &InsufficientStackError{Seat: seat.Index, Requested: amount, Stack: seat.Stack}
		}
		// Below-minimum raises are only legal as a forced all-in.
		if amount < br.CurrentBet+br.MinRaise && amount != stackTo {
			return illegal(seat.Index, action, ReasonBelowMinRaise, fmt.Sprintf("minimum raise to %d", br.CurrentBet+br.MinRaise))
		}
		if amount <= br.CurrentBet {
			return illegal(seat.Index, action, ReasonBadAmount, fmt.Sprintf("raise must exceed %d", br.CurrentBet))
		}
		if max := br.maxBetTo(seat, potTotal); amount > max {
			return illegal(seat.Index, action, ReasonAboveMaxBet, fmt.Sprintf("maximum raise to %d", max))
		}
	case AllIn:
		// Always legal with chips behind. Under pot limit the commit
		// is capped at the pot-size maximum during apply.
		if seat.Stack == 0 {
			return &InsufficientStackError{Seat: seat.Index, Requested: 1, Stack: 0}
		}
	default:
		return illegal(seat.Index, action, ReasonNotLegal, "unknown action")
	}
	return nil
}

// complete reports whether the street can close: every seat that can
// still act has acted since the last full raise and has matched the
// outstanding bet, or at most one seat remains in the hand.
func (br *BettingRound) complete(seats []*Seat) bool {
	inHand := 0
	for _, s := range seats {
		if s.InHand() {
			inHand++
		}
	}
	if inHand <= 1 {
		return true
	}
	for _, s := range seats {
		if !s.CanAct() {
			continue
		}
		if !br.acted[s.Index] || s.StreetBet != br.CurrentBet {
			return false
		}
	}
	return true
}
