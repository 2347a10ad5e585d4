package poker

import (
	"math/rand"
	"testing"
)

func TestVariantHoleCardCounts(t *testing.T) {
	t.Parallel()

	counts := map[Variant]int{
		VariantHoldem: 2,
		VariantOmaha:  4,
		VariantOmaha5: 5,
		VariantOmaha6: 6,
		VariantOmaha8: 4,
	}
	for v, want := range counts {
		if got := v.HoleCardCount(); got != want {
			t.Errorf("%s: HoleCardCount = %d, want %d", v, got, want)
		}
		parsed, err := ParseVariant(string(v))
		if err != nil || parsed != v {
			t.Errorf("ParseVariant(%s) = %v, %v", v, parsed, err)
		}
	}
	if _, err := ParseVariant("stud"); err == nil {
		t.Error("ParseVariant should reject unknown variants")
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	t.Parallel()

	board := MustParseCards("2c 7d 9h Js Kd")
	if _, err := Evaluate(MustParseCards("As Ks Qs"), board, VariantHoldem); err == nil {
		t.Error("wrong hole count should fail")
	}
	if _, err := Evaluate(MustParseCards("As Kd"), MustParseCards("As 7d 9h Js Kd"), VariantHoldem); err == nil {
		t.Error("duplicate across hole and board should fail")
	}
	if _, err := Evaluate(MustParseCards("As Kd Qh Jc"), MustParseCards("2c 7d"), VariantOmaha); err == nil {
		t.Error("short board should fail for omaha")
	}
}

// TestOmahaTwoCardRule is the defining Omaha case: four spades on
// board plus one in the hole make a flush in hold'em but not in Omaha,
// where exactly two hole cards must play.
func TestOmahaTwoCardRule(t *testing.T) {
	t.Parallel()

	board := MustParseCards("As Ks Qs Js 2d")
	hole := MustParseCards("Ts 9h 8h 7h")

	res, err := Evaluate(hole, board, VariantOmaha)
	if err != nil {
		t.Fatal(err)
	}
	if res.High.Category == Flush || res.High.Category == StraightFlush || res.High.Category == RoyalFlush {
		t.Fatalf("omaha made a flush with one suited hole card: %v", res.High)
	}
	// Ts+9h with K-Q-J from the board is the best legal hand.
	if res.High.Category != Straight {
		t.Errorf("category = %s, want Straight", res.High.Category)
	}
	if res.High.Kickers[0] != King {
		t.Errorf("straight high = %s, want King", rankName(res.High.Kickers[0]))
	}

	// The same cards under hold'em selection do make the royal flush,
	// which is exactly the bug the constraint prevents.
	freeRes, err := bestUnconstrained(hole, board)
	if err != nil {
		t.Fatal(err)
	}
	if freeRes.Category != RoyalFlush {
		t.Errorf("unconstrained selection = %s, want RoyalFlush", freeRes.Category)
	}
}

// TestOmahaSelectionCounts verifies the 2-hole/3-board property over
// random deals for every Omaha variant.
func TestOmahaSelectionCounts(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(555))
	for _, v := range []Variant{VariantOmaha, VariantOmaha5, VariantOmaha6, VariantOmaha8} {
		for trial := 0; trial < 200; trial++ {
			d := NewDeck(rng)
			hole := d.Draw(v.HoleCardCount())
			board := d.Draw(5)

			res, err := Evaluate(hole, board, v)
			if err != nil {
				t.Fatal(err)
			}
			holeSet := NewCardSet(hole...)
			boardSet := NewCardSet(board...)
			fromHole, fromBoard := 0, 0
			for _, c := range res.High.Cards {
				switch {
				case holeSet.Contains(c):
					fromHole++
				case boardSet.Contains(c):
					fromBoard++
				default:
					t.Fatalf("%s: card %s came from nowhere", v, c)
				}
			}
			if fromHole != 2 || fromBoard != 3 {
				t.Fatalf("%s: winning hand used %d hole + %d board cards", v, fromHole, fromBoard)
			}
		}
	}
}

func TestOmaha8QualifyingLow(t *testing.T) {
	t.Parallel()

	board := MustParseCards("Ah 2c 3d Kh Qd")
	hole := MustParseCards("4s 5s Kc Qc")

	res, err := Evaluate(hole, board, VariantOmaha8)
	if err != nil {
		t.Fatal(err)
	}
	if res.Low == nil {
		t.Fatal("expected a qualifying low")
	}
	want := [5]uint8{5, 4, 3, 2, 1}
	if res.Low.Ranks != want {
		t.Errorf("low ranks = %v, want %v (wheel)", res.Low.Ranks, want)
	}
	if got := res.Low.Describe(); got != "5-4-3-2-A low" {
		t.Errorf("Describe = %q", got)
	}
}

func TestOmaha8NoQualifyingLow(t *testing.T) {
	t.Parallel()

	// Only two low board cards: no 3-from-board low is possible, so
	// the low division never opens.
	board := MustParseCards("9h Th Jc 2d 3s")
	hole := MustParseCards("Ah 4c 5d Kd")

	res, err := Evaluate(hole, board, VariantOmaha8)
	if err != nil {
		t.Fatal(err)
	}
	if res.Low != nil {
		t.Fatalf("no low should qualify on this board, got %v", res.Low.Ranks)
	}
}

func TestOmaha8LowOrdering(t *testing.T) {
	t.Parallel()

	board := MustParseCards("2c 4d 6h Kh Qd")

	wheelish, err := Evaluate(MustParseCards("Ah 3s Kc Qc"), board, VariantOmaha8)
	if err != nil {
		t.Fatal(err)
	}
	eightLow, err := Evaluate(MustParseCards("7h 8s Kd Qs"), board, VariantOmaha8)
	if err != nil {
		t.Fatal(err)
	}
	if wheelish.Low == nil || eightLow.Low == nil {
		t.Fatal("both hands should make a low")
	}
	if !wheelish.Low.BeatsLow(*eightLow.Low) {
		t.Errorf("6-4-3-2-A should beat 8-7-6-4-2: %v vs %v", wheelish.Low.Ranks, eightLow.Low.Ranks)
	}
	if eightLow.Low.Ranks != [5]uint8{8, 7, 6, 4, 2} {
		t.Errorf("eight low ranks = %v", eightLow.Low.Ranks)
	}
}
