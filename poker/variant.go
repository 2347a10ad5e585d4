package poker

import (
	"fmt"
)

// Variant identifies the game being dealt. It selects the hole-card
// count and the evaluation strategy used at showdown.
type Variant string

const (
	// VariantHoldem is standard Texas hold'em: two hole cards, best
	// five of seven, unconstrained selection.
	VariantHoldem Variant = "holdem"
	// VariantOmaha is four-card Omaha: exactly two hole cards and
	// exactly three board cards must be used.
	VariantOmaha Variant = "omaha"
	// VariantOmaha5 is five-card Omaha under the same 2+3 constraint.
	VariantOmaha5 Variant = "omaha5"
	// VariantOmaha6 is six-card Omaha under the same 2+3 constraint.
	VariantOmaha6 Variant = "omaha6"
	// VariantOmaha8 is four-card Omaha hi/lo eight-or-better: the pot
	// is split between the best high hand and the best qualifying
	// ace-to-eight low, when one exists.
	VariantOmaha8 Variant = "omaha8"
)

// ParseVariant validates a configuration string.
func ParseVariant(s string) (Variant, error) {
	v := Variant(s)
	switch v {
	case VariantHoldem, VariantOmaha, VariantOmaha5, VariantOmaha6, VariantOmaha8:
		return v, nil
	}
	return "", fmt.Errorf("unknown variant %q", s)
}

// HoleCardCount returns how many hole cards each seat is dealt.
func (v Variant) HoleCardCount() int {
	switch v {
	case VariantOmaha, VariantOmaha8:
		return 4
	case VariantOmaha5:
		return 5
	case VariantOmaha6:
		return 6
	default:
		return 2
	}
}

// IsOmaha reports whether the 2-hole/3-board selection constraint
// applies. This is the defining rule of the Omaha family; skipping it
// and selecting freely produces wrong showdown results.
func (v Variant) IsOmaha() bool {
	switch v {
	case VariantOmaha, VariantOmaha5, VariantOmaha6, VariantOmaha8:
		return true
	}
	return false
}

// HighLowSplit reports whether showdown is split into high and low
// divisions.
func (v Variant) HighLowSplit() bool { return v == VariantOmaha8 }

// LowEval is a qualifying ace-to-eight low hand: five distinct ranks
// eight or below, ace counting low, straights and flushes ignored.
// Ranks holds low values (ace=1 .. eight=8) sorted descending; a lower
// Key is a better low.
type LowEval struct {
	Ranks [5]uint8
	Key   uint32
	Cards [5]Card
}

// BeatsLow reports whether l is a better low than o.
func (l LowEval) BeatsLow(o LowEval) bool { return l.Key < o.Key }

// Describe renders the low, e.g. "8-6-4-3-A low".
func (l LowEval) Describe() string {
	parts := make([]byte, 0, 12)
	for i, r := range l.Ranks {
		if i > 0 {
			parts = append(parts, '-')
		}
		if r == 1 {
			parts = append(parts, 'A')
		} else {
			parts = append(parts, '0'+r)
		}
	}
	return string(parts) + " low"
}

// Result is the showdown evaluation of one seat's cards. Low is nil
// except for high/low-split variants where a qualifying low exists.
type Result struct {
	High Eval
	Low  *LowEval
}

// Evaluate scores the best qualifying hand(s) for a seat. It is a pure
// function of its inputs: identical cards and variant always yield an
// identical Result. Board must hold at least three cards for Omaha
// variants and hole+board at least five for hold'em.
func Evaluate(hole, board []Card, variant Variant) (Result, error) {
	if len(hole) != variant.HoleCardCount() {
		return Result{}, fmt.Errorf("%s deals %d hole cards, got %d", variant, variant.HoleCardCount(), len(hole))
	}
	if len(board) > 5 {
		return Result{}, fmt.Errorf("board holds at most 5 cards, got %d", len(board))
	}
	if dup := firstDuplicate(hole, board); dup != 0 {
		return Result{}, fmt.Errorf("duplicate card %s", dup)
	}

	if !variant.IsOmaha() {
		high, err := bestUnconstrained(hole, board)
		if err != nil {
			return Result{}, err
		}
		return Result{High: high}, nil
	}

	if len(board) < 3 {
		return Result{}, fmt.Errorf("%s needs at least 3 board cards, got %d", variant, len(board))
	}
	high := bestOmahaHigh(hole, board)
	res := Result{High: high}
	if variant.HighLowSplit() {
		if low, ok := bestOmahaLow(hole, board); ok {
			res.Low = &low
		}
	}
	return res, nil
}

func firstDuplicate(hole, board []Card) Card {
	var seen CardSet
	for _, c := range hole {
		if seen.Contains(c) {
			return c
		}
		seen.Add(c)
	}
	for _, c := range board {
		if seen.Contains(c) {
			return c
		}
		seen.Add(c)
	}
	return 0
}

// bestUnconstrained picks the best five cards from the union of hole
// and board (hold'em selection).
func bestUnconstrained(hole, board []Card) (Eval, error) {
	all := make([]Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	if len(all) < 5 {
		return Eval{}, fmt.Errorf("need at least 5 cards, got %d", len(all))
	}

	var best Eval
	var five [5]Card
	eachCombination(len(all), 5, func(idx []int) {
		for i, j := range idx {
			five[i] = all[j]
		}
		if e := EvalFive(five); e.Key > best.Key || best.Key == 0 {
			best = e
		}
	})
	return best, nil
}

// bestOmahaHigh enforces the exactly-2-hole, exactly-3-board rule.
func bestOmahaHigh(hole, board []Card) Eval {
	var best Eval
	var five [5]Card
	eachCombination(len(hole), 2, func(h []int) {
		five[0], five[1] = hole[h[0]], hole[h[1]]
		eachCombination(len(board), 3, func(b []int) {
			five[2], five[3], five[4] = board[b[0]], board[b[1]], board[b[2]]
			if e := EvalFive(five); e.Key > best.Key || best.Key == 0 {
				best = e
			}
		})
	})
	return best
}

// lowValue maps a rank to its ace-to-eight low value, or 0 when the
// card cannot play low.
func lowValue(r uint8) uint8 {
	switch {
	case r == Ace:
		return 1
	case r <= Eight:
		return r + 2
	default:
		return 0
	}
}

// bestOmahaLow searches 2-hole/3-board combinations for the best
// qualifying low. Returns ok=false when no five distinct ranks eight
// or below can be assembled, in which case the high hand scoops that
// division.
func bestOmahaLow(hole, board []Card) (LowEval, bool) {
	var best LowEval
	found := false
	var five [5]Card
	eachCombination(len(hole), 2, func(h []int) {
		five[0], five[1] = hole[h[0]], hole[h[1]]
		eachCombination(len(board), 3, func(b []int) {
			five[2], five[3], five[4] = board[b[0]], board[b[1]], board[b[2]]
			low, ok := evalLowFive(five)
			if !ok {
				return
			}
			if !found || low.Key < best.Key {
				best = low
				found = true
			}
		})
	})
	return best, found
}

func evalLowFive(cards [5]Card) (LowEval, bool) {
	var vals [5]uint8
	var seen uint16
	for i, c := range cards {
		v := lowValue(c.Rank())
		if v == 0 || seen&(1<<v) != 0 {
			return LowEval{}, false
		}
		seen |= 1 << v
		vals[i] = v
	}
	// Insertion sort descending: five elements, no allocation.
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		j := i - 1
		for j >= 0 && vals[j] < v {
			vals[j+1] = vals[j]
			j--
		}
		vals[j+1] = v
	}
	var key uint32
	for _, v := range vals {
		key = key<<4 | uint32(v)
	}
	return LowEval{Ranks: vals, Key: key, Cards: cards}, true
}

// eachCombination invokes fn with every k-subset of [0,n) in
// lexicographic order. The index slice is reused between calls.
func eachCombination(n, k int, fn func(idx []int)) {
	idx := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(idx)
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			idx[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}
