package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Card is a single playing card stored as one set bit in a uint64.
// Layout: [13 spades][13 hearts][13 diamonds][13 clubs], rank bits
// ascending from deuce (bit 0 of each suit block) to ace (bit 12).
type Card uint64

// CardSet holds zero or more cards as a bitset. Union, membership and
// per-suit extraction are single instructions, which keeps evaluation
// allocation-free on the hot path.
type CardSet uint64

// Suit constants.
const (
	Clubs uint8 = iota
	Diamonds
	Hearts
	Spades
)

// Rank constants (0-12 for deuce through ace).
const (
	Two uint8 = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const ranksPerSuit = 13

// NewCard builds a card from a rank (0-12) and suit (0-3).
func NewCard(rank, suit uint8) Card {
	return Card(1) << (suit*ranksPerSuit + rank)
}

// Rank returns the card's rank (0-12), or 255 for the zero Card.
func (c Card) Rank() uint8 {
	if c == 0 {
		return 255
	}
	return uint8(bits.TrailingZeros64(uint64(c))) % ranksPerSuit
}

// Suit returns the card's suit (0-3), or 255 for the zero Card.
func (c Card) Suit() uint8 {
	if c == 0 {
		return 255
	}
	return uint8(bits.TrailingZeros64(uint64(c))) / ranksPerSuit
}

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// String renders the card in compact notation, e.g. "As" or "Td".
func (c Card) String() string {
	rank, suit := c.Rank(), c.Suit()
	if rank > 12 || suit > 3 {
		return "??"
	}
	return string(rankChars[rank]) + string(suitChars[suit])
}

// ParseCard parses compact notation ("As", "td") into a Card.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	rank := strings.IndexByte(rankChars, upperByte(s[0]))
	suit := strings.IndexByte(suitChars, lowerByte(s[1]))
	if rank < 0 {
		return 0, fmt.Errorf("invalid rank %q", s[0])
	}
	if suit < 0 {
		return 0, fmt.Errorf("invalid suit %q", s[1])
	}
	return NewCard(uint8(rank), uint8(suit)), nil
}

// MarshalJSON renders the card as its compact notation string.
func (c Card) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON parses a compact notation string.
func (c *Card) UnmarshalJSON(data []byte) error {
	if len(data) != 4 || data[0] != '"' || data[3] != '"' {
		return fmt.Errorf("invalid card json %s", data)
	}
	parsed, err := ParseCard(string(data[1:3]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MustParseCards parses a space-separated card list ("As Kd Qh") and
// panics on malformed input. Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, len(fields))
	for i, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards[i] = c
	}
	return cards
}

func upperByte(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lowerByte(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

// NewCardSet builds a set from individual cards.
func NewCardSet(cards ...Card) CardSet {
	var s CardSet
	for _, c := range cards {
		s |= CardSet(c)
	}
	return s
}

// Add inserts a card into the set.
func (s *CardSet) Add(c Card) { *s |= CardSet(c) }

// Contains reports whether the set holds the card.
func (s CardSet) Contains(c Card) bool { return s&CardSet(c) != 0 }

// Count returns the number of cards in the set.
func (s CardSet) Count() int { return bits.OnesCount64(uint64(s)) }

// SuitMask returns the 13 rank bits for one suit.
func (s CardSet) SuitMask(suit uint8) uint16 {
	return uint16((s >> (suit * ranksPerSuit)) & 0x1FFF)
}

// RankMask returns the union of rank bits across all suits.
func (s CardSet) RankMask() uint16 {
	var mask uint16
	for suit := uint8(0); suit < 4; suit++ {
		mask |= s.SuitMask(suit)
	}
	return mask
}

// Cards expands the set into individual cards, lowest bit first.
func (s CardSet) Cards() []Card {
	cards := make([]Card, 0, s.Count())
	rest := uint64(s)
	for rest != 0 {
		low := rest & -rest
		cards = append(cards, Card(low))
		rest &^= low
	}
	return cards
}

// String renders the set as space-separated cards in bit order.
func (s CardSet) String() string {
	cards := s.Cards()
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
