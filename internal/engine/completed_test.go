package engine

import (
	"math/rand"
	"testing"

	"github.com/openfelt/cardroom/poker"
)

// A heads-up fold must land in the record for every seat: final stacks
// and the fold flag, not just the seats appended last.
func TestCompletedHandRecordsEverySeat(t *testing.T) {
	t.Parallel()

	seats := testSeats(1000, 1000)
	h, err := NewHand(holdemConfig(0), seats, poker.NewDeck(rand.New(rand.NewSource(7))), testLogger())
	if err != nil {
		t.Fatalf("new hand: %v", err)
	}
	if err := h.Submit(0, Fold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}

	rec := h.Result()
	if rec == nil {
		t.Fatal("no hand record")
	}
	if len(rec.Seats) != 2 {
		t.Fatalf("record has %d seats, want 2", len(rec.Seats))
	}
	if got := rec.Seats[0]; got.EndStack != 995 || !got.Folded {
		t.Errorf("seat 0 = {EndStack: %d, Folded: %v}, want {995, true}", got.EndStack, got.Folded)
	}
	if got := rec.Seats[1]; got.EndStack != 1005 || got.Folded {
		t.Errorf("seat 1 = {EndStack: %d, Folded: %v}, want {1005, false}", got.EndStack, got.Folded)
	}
}

// Hole cards enter the record only through a showdown reveal. A folded
// hand, and the uncontested winner of a fold-out, stay private.
func TestCompletedHandHidesUnrevealedHoles(t *testing.T) {
	t.Parallel()

	seats := testSeats(1000, 1000)
	h, err := NewHand(holdemConfig(0), seats, poker.NewDeck(rand.New(rand.NewSource(7))), testLogger())
	if err != nil {
		t.Fatalf("new hand: %v", err)
	}
	if err := h.Submit(0, Fold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}
	for _, s := range h.Result().Seats {
		if len(s.Hole) != 0 {
			t.Errorf("seat %d (never revealed) has hole cards %v in record", s.Seat, s.Hole)
		}
		if s.ShowedDown {
			t.Errorf("seat %d marked shown down in a fold-out", s.Seat)
		}
	}
}

// A checked-down showdown records the revealed hands and only those:
// the preflop folder's cards never appear.
func TestCompletedHandRecordsShowdownHoles(t *testing.T) {
	t.Parallel()

	seats := testSeats(1000, 1000, 1000)
	h, err := NewHand(holdemConfig(0), seats, poker.NewDeck(rand.New(rand.NewSource(11))), testLogger())
	if err != nil {
		t.Fatalf("new hand: %v", err)
	}
	// Seat 0 folds; seats 1 and 2 check it down to showdown.
	steps := []struct {
		seat   int
		action ActionType
		amount int
	}{
		{0, Fold, 0},
		{1, Call, 0},
		{2, Check, 0}, // big blind option
		{1, Check, 0}, {2, Check, 0}, // flop
		{1, Check, 0}, {2, Check, 0}, // turn
		{1, Check, 0}, {2, Check, 0}, // river
	}
	for _, st := range steps {
		if err := h.Submit(st.seat, st.action, st.amount); err != nil {
			t.Fatalf("seat %d %s: %v", st.seat, st.action, err)
		}
	}
	if !h.Done() {
		t.Fatal("hand not done after river checks")
	}

	rec := h.Result()
	if len(rec.Seats[0].Hole) != 0 || rec.Seats[0].ShowedDown {
		t.Errorf("folded seat 0 = {Hole: %v, ShowedDown: %v}, want hidden", rec.Seats[0].Hole, rec.Seats[0].ShowedDown)
	}
	for _, idx := range []int{1, 2} {
		s := rec.Seats[idx]
		if !s.ShowedDown {
			t.Errorf("seat %d reached showdown but is not marked shown down", idx)
		}
		if len(s.Hole) != 2 {
			t.Errorf("seat %d hole = %v, want the two revealed cards", idx, s.Hole)
		}
	}
}
