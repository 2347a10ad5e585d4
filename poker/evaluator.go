package poker

import (
	"fmt"
	"strings"
)

// Category enumerates hand strength classes from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = [...]string{
	"High Card",
	"Pair",
	"Two Pair",
	"Three of a Kind",
	"Straight",
	"Flush",
	"Full House",
	"Four of a Kind",
	"Straight Flush",
	"Royal Flush",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "Unknown"
}

// Eval is the result of scoring one concrete five-card hand. Key gives
// a total ordering (higher wins); Kickers break ties within a category
// in lexicographic order, highest first. Eval is a pure function of the
// cards, so identical inputs always produce identical results.
type Eval struct {
	Category Category
	Key      uint32
	Kickers  []uint8
	Cards    [5]Card
}

// Beats reports whether e outranks o.
func (e Eval) Beats(o Eval) bool { return e.Key > o.Key }

// Compare returns 1 if e wins, -1 if o wins, 0 on an exact tie.
func Compare(e, o Eval) int {
	switch {
	case e.Key > o.Key:
		return 1
	case e.Key < o.Key:
		return -1
	default:
		return 0
	}
}

// packKey folds the category and up to five kicker ranks into a single
// ordered integer: category in the top bits, one nibble per kicker.
func packKey(cat Category, kickers []uint8) uint32 {
	key := uint32(cat) << 20
	shift := 16
	for _, k := range kickers {
		key |= uint32(k) << shift
		shift -= 4
	}
	return key
}

// EvalFive scores exactly five cards.
func EvalFive(cards [5]Card) Eval {
	var rankCount [13]uint8
	var suitCount [4]uint8
	for _, c := range cards {
		rankCount[c.Rank()]++
		suitCount[c.Suit()]++
	}

	flush := suitCount[0] == 5 || suitCount[1] == 5 || suitCount[2] == 5 || suitCount[3] == 5
	straightHigh, isStraight := straightHighRank(rankCount)

	finish := func(cat Category, kickers []uint8) Eval {
		return Eval{Category: cat, Key: packKey(cat, kickers), Kickers: kickers, Cards: cards}
	}

	if flush && isStraight {
		if straightHigh == Ace {
			return finish(RoyalFlush, []uint8{Ace})
		}
		return finish(StraightFlush, []uint8{straightHigh})
	}

	// Group ranks by multiplicity, highest rank first within a group.
	var quads, trips, pairs, singles []uint8
	for r := int(Ace); r >= int(Two); r-- {
		switch rankCount[r] {
		case 4:
			quads = append(quads, uint8(r))
		case 3:
			trips = append(trips, uint8(r))
		case 2:
			pairs = append(pairs, uint8(r))
		case 1:
			singles = append(singles, uint8(r))
		}
	}

	switch {
	case len(quads) == 1:
		return finish(FourOfAKind, []uint8{quads[0], singles[0]})
	case len(trips) == 1 && len(pairs) == 1:
		return finish(FullHouse, []uint8{trips[0], pairs[0]})
	case flush:
		return finish(Flush, singles)
	case isStraight:
		return finish(Straight, []uint8{straightHigh})
	case len(trips) == 1:
		return finish(ThreeOfAKind, []uint8{trips[0], singles[0], singles[1]})
	case len(pairs) == 2:
		return finish(TwoPair, []uint8{pairs[0], pairs[1], singles[0]})
	case len(pairs) == 1:
		return finish(OnePair, []uint8{pairs[0], singles[0], singles[1], singles[2]})
	default:
		return finish(HighCard, singles)
	}
}

// straightHighRank reports the high rank of a five-card straight given
// per-rank counts. The wheel (A-2-3-4-5) reports Five as its high card.
func straightHighRank(rankCount [13]uint8) (uint8, bool) {
	var mask uint16
	for r, n := range rankCount {
		if n > 0 {
			mask |= 1 << r
		}
	}
	const wheel = 1<<Ace | 1<<Five | 1<<Four | 1<<Three | 1<<Two
	if mask == wheel {
		return Five, true
	}
	for high := int(Ace); high >= int(Six); high-- {
		run := uint16(0x1F) << (high - 4)
		if mask == run {
			return uint8(high), true
		}
	}
	return 0, false
}

var rankNames = [...]string{
	"Deuce", "Three", "Four", "Five", "Six", "Seven",
	"Eight", "Nine", "Ten", "Jack", "Queen", "King", "Ace",
}

func rankName(r uint8) string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "?"
}

func rankPlural(r uint8) string {
	if r == Six {
		return "Sixes"
	}
	return rankName(r) + "s"
}

// Describe renders a human-readable description, e.g.
// "Full House, Kings full of Tens".
func (e Eval) Describe() string {
	k := e.Kickers
	switch e.Category {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return fmt.Sprintf("Straight Flush, %s high", rankName(k[0]))
	case FourOfAKind:
		return fmt.Sprintf("Four of a Kind, %s", rankPlural(k[0]))
	case FullHouse:
		return fmt.Sprintf("Full House, %s full of %s", rankPlural(k[0]), rankPlural(k[1]))
	case Flush:
		return fmt.Sprintf("Flush, %s high", rankName(k[0]))
	case Straight:
		return fmt.Sprintf("Straight, %s high", rankName(k[0]))
	case ThreeOfAKind:
		return fmt.Sprintf("Three of a Kind, %s", rankPlural(k[0]))
	case TwoPair:
		return fmt.Sprintf("Two Pair, %s and %s", rankPlural(k[0]), rankPlural(k[1]))
	case OnePair:
		return fmt.Sprintf("Pair of %s", rankPlural(k[0]))
	default:
		return fmt.Sprintf("High Card, %s", rankName(k[0]))
	}
}

// String renders the description plus the concrete cards.
func (e Eval) String() string {
	parts := make([]string, len(e.Cards))
	for i, c := range e.Cards {
		parts[i] = c.String()
	}
	return e.Describe() + " [" + strings.Join(parts, " ") + "]"
}
