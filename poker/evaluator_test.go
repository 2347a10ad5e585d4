package poker

import (
	"math/rand"
	"testing"

	ph "github.com/paulhankin/poker"
)

func evalCards(t *testing.T, s string) Eval {
	t.Helper()
	cards := MustParseCards(s)
	if len(cards) != 5 {
		t.Fatalf("want 5 cards, got %d", len(cards))
	}
	var five [5]Card
	copy(five[:], cards)
	return EvalFive(five)
}

func TestEvalFiveCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cards    string
		category Category
		describe string
	}{
		{"As Ks Qs Js Ts", RoyalFlush, "Royal Flush"},
		{"9h 8h 7h 6h 5h", StraightFlush, "Straight Flush, Nine high"},
		{"Ah 2h 3h 4h 5h", StraightFlush, "Straight Flush, Five high"},
		{"Qc Qd Qh Qs 2d", FourOfAKind, "Four of a Kind, Queens"},
		{"Kc Kd Kh Tc Td", FullHouse, "Full House, Kings full of Tens"},
		{"Ad Jd 9d 6d 3d", Flush, "Flush, Ace high"},
		{"Tc 9d 8h 7s 6c", Straight, "Straight, Ten high"},
		{"Ac 2d 3h 4s 5c", Straight, "Straight, Five high"},
		{"7c 7d 7h Ks 2c", ThreeOfAKind, "Three of a Kind, Sevens"},
		{"Ac Ad 8h 8s Kc", TwoPair, "Two Pair, Aces and Eights"},
		{"Jc Jd Ah 7s 3c", OnePair, "Pair of Jacks"},
		{"Ac Jd 9h 6s 3c", HighCard, "High Card, Ace"},
	}
	for _, tt := range tests {
		e := evalCards(t, tt.cards)
		if e.Category != tt.category {
			t.Errorf("%s: category = %s, want %s", tt.cards, e.Category, tt.category)
		}
		if got := e.Describe(); got != tt.describe {
			t.Errorf("%s: describe = %q, want %q", tt.cards, got, tt.describe)
		}
	}
}

func TestEvalFiveKickerOrdering(t *testing.T) {
	t.Parallel()

	// Same category, decided by kickers lexicographically.
	pairs := [][2]string{
		{"Ac Ad Kh 7s 3c", "Ac Ad Qh 7s 3c"},  // pair of aces, K vs Q kicker
		{"Kc Kd Kh Tc Td", "Kc Kd Kh 9c 9d"},  // kings full of tens vs nines
		{"Ad Jd 9d 6d 3d", "Ad Jd 9d 6d 2d"},  // flush, last kicker
		{"9c 8d 7h 6s 5c", "8c 7d 6h 5s 4c"},  // straight high card
		{"Ac Ad 8h 8s Kc", "Ac Ad 7h 7s Kc"},  // second pair decides
	}
	for _, p := range pairs {
		hi, lo := evalCards(t, p[0]), evalCards(t, p[1])
		if !hi.Beats(lo) {
			t.Errorf("%s should beat %s", p[0], p[1])
		}
		if Compare(hi, lo) != 1 || Compare(lo, hi) != -1 {
			t.Errorf("Compare disagrees for %s vs %s", p[0], p[1])
		}
	}
}

func TestEvalFiveExactTie(t *testing.T) {
	t.Parallel()

	a := evalCards(t, "Ac Kd 9h 6s 3c")
	b := evalCards(t, "Ad Kh 9c 6d 3h")
	if Compare(a, b) != 0 {
		t.Errorf("suit-only difference must tie: %v vs %v", a, b)
	}
}

func TestEvalFiveDeterministic(t *testing.T) {
	t.Parallel()

	cards := MustParseCards("Ac Kd 9h 6s 3c")
	var five [5]Card
	copy(five[:], cards)
	first := EvalFive(five)
	for i := 0; i < 10; i++ {
		if got := EvalFive(five); got.Key != first.Key {
			t.Fatalf("evaluation not deterministic: %v vs %v", got, first)
		}
	}
}

// toLibraryCard converts to the paulhankin/poker representation, which
// numbers ranks 1-13 with ace low.
func toLibraryCard(t *testing.T, c Card) ph.Card {
	t.Helper()
	var s ph.Suit
	switch c.Suit() {
	case Clubs:
		s = ph.Club
	case Diamonds:
		s = ph.Diamond
	case Hearts:
		s = ph.Heart
	default:
		s = ph.Spade
	}
	var r ph.Rank
	if c.Rank() == Ace {
		r = ph.Rank(1)
	} else {
		r = ph.Rank(c.Rank() + 2)
	}
	card, err := ph.MakeCard(s, r)
	if err != nil {
		t.Fatalf("MakeCard(%s): %v", c, err)
	}
	return card
}

// TestHoldemAgainstLibrary cross-checks seven-card ordering against an
// independent evaluator over randomly dealt matchups.
func TestHoldemAgainstLibrary(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1234))
	for trial := 0; trial < 2000; trial++ {
		d := NewDeck(rng)
		board := d.Draw(5)
		holeA := d.Draw(2)
		holeB := d.Draw(2)

		resA, err := Evaluate(holeA, board, VariantHoldem)
		if err != nil {
			t.Fatal(err)
		}
		resB, err := Evaluate(holeB, board, VariantHoldem)
		if err != nil {
			t.Fatal(err)
		}

		var sevenA, sevenB [7]ph.Card
		for i, c := range append(append([]Card{}, holeA...), board...) {
			sevenA[i] = toLibraryCard(t, c)
		}
		for i, c := range append(append([]Card{}, holeB...), board...) {
			sevenB[i] = toLibraryCard(t, c)
		}
		libA, libB := ph.Eval7(&sevenA), ph.Eval7(&sevenB)

		mine := Compare(resA.High, resB.High)
		var lib int
		switch {
		case libA > libB:
			lib = 1
		case libA < libB:
			lib = -1
		}
		if mine != lib {
			t.Fatalf("trial %d: board %v holeA %v holeB %v: mine=%d lib=%d (%v vs %v)",
				trial, board, holeA, holeB, mine, lib, resA.High, resB.High)
		}
	}
}
