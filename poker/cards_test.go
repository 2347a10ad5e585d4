package poker

import (
	"math/rand"
	"testing"
)

func TestParseCardRoundTrip(t *testing.T) {
	t.Parallel()

	for suit := uint8(0); suit < 4; suit++ {
		for rank := uint8(0); rank < 13; rank++ {
			c := NewCard(rank, suit)
			parsed, err := ParseCard(c.String())
			if err != nil {
				t.Fatalf("parse %s: %v", c, err)
			}
			if parsed != c {
				t.Errorf("round trip %s: got %s", c, parsed)
			}
		}
	}
}

func TestParseCardRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "A", "Asd", "1s", "Ax", "?\x00"} {
		if _, err := ParseCard(s); err == nil {
			t.Errorf("ParseCard(%q) should fail", s)
		}
	}
}

func TestParseCardCaseInsensitive(t *testing.T) {
	t.Parallel()

	a, err := ParseCard("as")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseCard("AS")
	if err != nil {
		t.Fatal(err)
	}
	if a != b || a != NewCard(Ace, Spades) {
		t.Errorf("case variants disagree: %s vs %s", a, b)
	}
}

func TestCardSetOperations(t *testing.T) {
	t.Parallel()

	cards := MustParseCards("As Kd Kh 2c")
	set := NewCardSet(cards...)

	if set.Count() != 4 {
		t.Errorf("Count = %d, want 4", set.Count())
	}
	for _, c := range cards {
		if !set.Contains(c) {
			t.Errorf("set should contain %s", c)
		}
	}
	if set.Contains(NewCard(Queen, Spades)) {
		t.Error("set should not contain Qs")
	}
	if got := set.SuitMask(Spades); got != 1<<Ace {
		t.Errorf("spade mask = %013b", got)
	}
	if got := set.RankMask(); got != 1<<Ace|1<<King|1<<Two {
		t.Errorf("rank mask = %013b", got)
	}
}

func TestDeckDealsEveryCardOnce(t *testing.T) {
	t.Parallel()

	d := NewDeck(rand.New(rand.NewSource(7)))
	var seen CardSet
	for i := 0; i < 52; i++ {
		c := d.DrawOne()
		if c == 0 {
			t.Fatalf("deck exhausted at %d", i)
		}
		if seen.Contains(c) {
			t.Fatalf("card %s drawn twice", c)
		}
		seen.Add(c)
	}
	if d.DrawOne() != 0 {
		t.Error("53rd draw should return zero")
	}
	if seen.Count() != 52 {
		t.Errorf("saw %d distinct cards", seen.Count())
	}
}

func TestDeckBurnConsumes(t *testing.T) {
	t.Parallel()

	d := NewDeck(rand.New(rand.NewSource(11)))
	d.Burn()
	if d.Remaining() != 51 {
		t.Errorf("Remaining = %d after burn, want 51", d.Remaining())
	}
	var seen CardSet
	for d.Remaining() > 0 {
		seen.Add(d.DrawOne())
	}
	if seen.Count() != 51 {
		t.Errorf("burned card reappeared: %d distinct", seen.Count())
	}
}

func TestDeckShuffleDeterministic(t *testing.T) {
	t.Parallel()

	a := NewDeck(rand.New(rand.NewSource(99)))
	b := NewDeck(rand.New(rand.NewSource(99)))
	for i := 0; i < 52; i++ {
		if ca, cb := a.DrawOne(), b.DrawOne(); ca != cb {
			t.Fatalf("position %d differs: %s vs %s", i, ca, cb)
		}
	}
}

func TestStackedDeckDealsTopFirst(t *testing.T) {
	t.Parallel()

	top := MustParseCards("As Ks Qs")
	d := NewStackedDeck(top...)
	got := d.Draw(3)
	for i, c := range got {
		if c != top[i] {
			t.Errorf("draw %d = %s, want %s", i, c, top[i])
		}
	}
	var seen CardSet
	seen = NewCardSet(got...)
	for d.Remaining() > 0 {
		c := d.DrawOne()
		if seen.Contains(c) {
			t.Fatalf("duplicate %s in stacked deck", c)
		}
		seen.Add(c)
	}
	if seen.Count() != 52 {
		t.Errorf("stacked deck holds %d distinct cards", seen.Count())
	}
}
