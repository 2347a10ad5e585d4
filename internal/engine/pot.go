package engine

import (
	"fmt"
	"sort"
)

// Pot is one layer of the pot stack. Eligible lists seats that
// contributed to the layer and have not folded; folded seats' chips
// stay in Amount but can no longer be won by them. A Closed pot can
// take no further chips because a higher layer exists above it.
type Pot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
	Main     bool  `json:"main"`
	Closed   bool  `json:"closed"`
}

// Contender is a seat's showdown ranking. HighKey orders the high
// division (higher wins). LowKey orders the low division (lower wins);
// zero means the seat has no qualifying low.
type Contender struct {
	Seat    int
	HighKey uint32
	LowKey  uint32
}

// PotAward is one payout instruction produced by distribution.
type PotAward struct {
	Pot      int    `json:"pot"`
	Division string `json:"division"`
	Seat     int    `json:"seat"`
	Amount   int    `json:"amount"`
}

// PotManager tracks per-seat contributions per street and layers them
// into main and side pots at each street settlement. Side-pot math is
// the highest-risk money code in the engine, so every settle verifies
// chip conservation instead of assuming it.
type PotManager struct {
	streetCommit []int
	handCommit   []int
	folded       []bool
	pots         []Pot
}

// NewPotManager creates a pot manager for numSeats seats.
func NewPotManager(numSeats int) *PotManager {
	return &PotManager{
		streetCommit: make([]int, numSeats),
		handCommit:   make([]int, numSeats),
		folded:       make([]bool, numSeats),
	}
}

// Commit records chips a seat has moved into the current street. The
// chips have already left the seat's stack.
func (pm *PotManager) Commit(seat, amount int) {
	pm.streetCommit[seat] += amount
}

// Fold removes a seat from all pot eligibility. Its chips stay where
// they are.
func (pm *PotManager) Fold(seat int) {
	pm.folded[seat] = true
	for i := range pm.pots {
		pm.pots[i].Eligible = removeSeat(pm.pots[i].Eligible, seat)
	}
}

// RefundAll zeroes the manager and returns every seat's total
// contribution, settled or pending. Used when a hand aborts: chips go
// back to their contributors regardless of pot layering.
func (pm *PotManager) RefundAll() []Payout {
	var refunds []Payout
	for i := range pm.handCommit {
		total := pm.handCommit[i] + pm.streetCommit[i]
		pm.handCommit[i] = 0
		pm.streetCommit[i] = 0
		if total > 0 {
			refunds = append(refunds, Payout{Seat: i, Amount: total})
		}
	}
	pm.pots = nil
	return refunds
}

// HandCommitted returns a seat's settled contribution for the hand.
func (pm *PotManager) HandCommitted(seat int) int { return pm.handCommit[seat] }

// Total returns all chips in flight: settled pots plus uncollected
// street bets.
func (pm *PotManager) Total() int {
	total := 0
	for _, p := range pm.pots {
		total += p.Amount
	}
	for _, c := range pm.streetCommit {
		total += c
	}
	return total
}

// Pots returns the settled pot layers.
func (pm *PotManager) Pots() []Pot {
	out := make([]Pot, len(pm.pots))
	copy(out, pm.pots)
	return out
}

// PotsWithPending returns the settled layers with uncollected street
// bets shown in the top (open) pot. Used for display and pot-limit
// sizing mid-street.
func (pm *PotManager) PotsWithPending() []Pot {
	out := pm.Pots()
	pending := 0
	for _, c := range pm.streetCommit {
		pending += c
	}
	if pending == 0 {
		return out
	}
	if len(out) == 0 {
		return []Pot{{Amount: pending, Main: true}}
	}
	out[len(out)-1].Amount += pending
	return out
}

// SettleStreet folds street commitments into hand totals and rebuilds
// the pot layers. Distinct all-in contribution levels each close one
// layer; a seat is eligible only for layers it fully funded. Returns
// the rebuilt layers or an InvariantViolationError when chips fail to
// balance.
func (pm *PotManager) SettleStreet(seats []*Seat) ([]Pot, error) {
	expected := 0
	for i, c := range pm.streetCommit {
		pm.handCommit[i] += c
		pm.streetCommit[i] = 0
		expected += pm.handCommit[i]
	}

	// Layer boundaries: every all-in seat's total caps a layer.
	levelSet := map[int]bool{}
	maxCommit := 0
	for _, s := range seats {
		if pm.handCommit[s.Index] > maxCommit {
			maxCommit = pm.handCommit[s.Index]
		}
		if s.Status == SeatAllIn && pm.handCommit[s.Index] > 0 {
			levelSet[pm.handCommit[s.Index]] = true
		}
	}
	levels := make([]int, 0, len(levelSet)+1)
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	if maxCommit > 0 && (len(levels) == 0 || levels[len(levels)-1] < maxCommit) {
		levels = append(levels, maxCommit)
	}

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		pot := Pot{Main: len(pots) == 0}
		for _, s := range seats {
			c := pm.handCommit[s.Index]
			if c > prev {
				slice := c - prev
				if slice > level-prev {
					slice = level - prev
				}
				pot.Amount += slice
			}
			if !pm.folded[s.Index] && s.InHand() && c >= level {
				pot.Eligible = append(pot.Eligible, s.Index)
			}
		}
		if pot.Amount == 0 {
			prev = level
			continue
		}
		if len(pot.Eligible) == 0 {
			return nil, &InvariantViolationError{Detail: fmt.Sprintf("pot layer at level %d has no eligible seats", level)}
		}
		pots = append(pots, pot)
		prev = level
	}
	// Every layer below the top is sealed against further chips.
	for i := range pots {
		pots[i].Closed = i < len(pots)-1
	}

	pm.pots = pots
	total := 0
	for _, p := range pm.pots {
		total += p.Amount
	}
	if total != expected {
		return nil, &InvariantViolationError{Detail: fmt.Sprintf("pots hold %d chips, contributions total %d", total, expected)}
	}
	return pm.Pots(), nil
}

// Distribute resolves every pot layer independently. Each pot goes to
// the best-ranked eligible contenders; in a high/low split, eligible
// qualifying lows take half with the odd chip going to the high side.
// Remainder chips within a division go one at a time to winners
// closest clockwise from the button. Returns payout instructions; the
// caller applies them to stacks.
func (pm *PotManager) Distribute(contenders []Contender, button, numSeats int) ([]PotAward, error) {
	bySeat := map[int]Contender{}
	for _, c := range contenders {
		bySeat[c.Seat] = c
	}

	var awards []PotAward
	for potIdx, pot := range pm.pots {
		var elig []Contender
		for _, seat := range pot.Eligible {
			if c, ok := bySeat[seat]; ok {
				elig = append(elig, c)
			}
		}
		if len(elig) == 0 {
			return nil, &InvariantViolationError{Detail: fmt.Sprintf("pot %d has no ranked contenders", potIdx)}
		}

		lowWinners := bestLow(elig)
		highWinners := bestHigh(elig)

		if len(lowWinners) > 0 {
			lowAmt := pot.Amount / 2
			highAmt := pot.Amount - lowAmt
			awards = append(awards, splitAmong(potIdx, "high", highAmt, highWinners, button, numSeats)...)
			awards = append(awards, splitAmong(potIdx, "low", lowAmt, lowWinners, button, numSeats)...)
		} else {
			awards = append(awards, splitAmong(potIdx, "high", pot.Amount, highWinners, button, numSeats)...)
		}
	}

	paid := 0
	for _, a := range awards {
		paid += a.Amount
	}
	total := 0
	for _, p := range pm.pots {
		total += p.Amount
	}
	if paid != total {
		return nil, &InvariantViolationError{Detail: fmt.Sprintf("awards pay %d of %d pot chips", paid, total)}
	}
	return awards, nil
}

func bestHigh(elig []Contender) []int {
	var best uint32
	for _, c := range elig {
		if c.HighKey > best {
			best = c.HighKey
		}
	}
	var winners []int
	for _, c := range elig {
		if c.HighKey == best {
			winners = append(winners, c.Seat)
		}
	}
	return winners
}

func bestLow(elig []Contender) []int {
	var best uint32
	for _, c := range elig {
		if c.LowKey != 0 && (best == 0 || c.LowKey < best) {
			best = c.LowKey
		}
	}
	if best == 0 {
		return nil
	}
	var winners []int
	for _, c := range elig {
		if c.LowKey == best {
			winners = append(winners, c.Seat)
		}
	}
	return winners
}

// splitAmong divides amount between winners, handing remainder chips
// out in clockwise order starting from the seat after the button.
func splitAmong(potIdx int, division string, amount int, winners []int, button, numSeats int) []PotAward {
	sort.Slice(winners, func(i, j int) bool {
		return seatDistance(button, winners[i], numSeats) < seatDistance(button, winners[j], numSeats)
	})
	base := amount / len(winners)
	rem := amount % len(winners)
	awards := make([]PotAward, 0, len(winners))
	for i, seat := range winners {
		amt := base
		if i < rem {
			amt++
		}
		if amt == 0 {
			continue
		}
		awards = append(awards, PotAward{Pot: potIdx, Division: division, Seat: seat, Amount: amt})
	}
	return awards
}

// seatDistance is the clockwise distance from the seat after the
// button to the given seat.
func seatDistance(button, seat, numSeats int) int {
	return (seat - button - 1 + numSeats) % numSeats
}

func removeSeat(seats []int, seat int) []int {
	out := seats[:0]
	for _, s := range seats {
		if s != seat {
			out = append(out, s)
		}
	}
	return out
}
