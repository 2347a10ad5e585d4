package poker

import (
	"math/rand"
)

// Deck is a shuffled 52-card draw sequence. It is consumed front to
// back within a single hand and is never restarted; build a fresh deck
// per hand instead. The RNG is explicit so shuffles are reproducible.
type Deck struct {
	cards [52]Card
	next  int
}

// NewDeck creates a full deck shuffled with rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{}
	i := 0
	for suit := uint8(0); suit < 4; suit++ {
		for rank := uint8(0); rank < ranksPerSuit; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
	return d
}

// NewStackedDeck builds an unshuffled deck that deals the given cards
// first, then the remainder of the pack in canonical order. Used by
// tests that need known boards.
func NewStackedDeck(top ...Card) *Deck {
	d := &Deck{}
	seen := NewCardSet(top...)
	i := copy(d.cards[:], top)
	for suit := uint8(0); suit < 4; suit++ {
		for rank := uint8(0); rank < ranksPerSuit; rank++ {
			c := NewCard(rank, suit)
			if !seen.Contains(c) {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}

// Draw removes and returns the next n cards, or nil if the deck cannot
// cover the request.
func (d *Deck) Draw(n int) []Card {
	if d.next+n > len(d.cards) {
		return nil
	}
	cards := d.cards[d.next : d.next+n]
	d.next += n
	return cards
}

// DrawOne removes and returns the next card (zero Card when exhausted).
func (d *Deck) DrawOne() Card {
	if d.next >= len(d.cards) {
		return 0
	}
	c := d.cards[d.next]
	d.next++
	return c
}

// Burn discards the next card. The burn still consumes the card, so it
// can never reappear in a later draw.
func (d *Deck) Burn() {
	if d.next < len(d.cards) {
		d.next++
	}
}

// Remaining returns how many cards are left to draw.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
