package engine

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/openfelt/cardroom/poker"
)

// Config fixes the rules for one hand. Button indexes the dealer seat;
// blinds and antes are in chips.
type Config struct {
	HandID     string
	TableID    string
	Variant    poker.Variant
	Structure  Structure
	Button     int
	SmallBlind int
	BigBlind   int
	Ante       int
}

// Hand drives a single hand from blinds to payout. It is purely
// synchronous: every call runs to completion on the caller's goroutine
// and either mutates state and appends events, or returns an error and
// changes nothing. Timers, sockets and scheduling live in the table
// runtime, never here.
type Hand struct {
	cfg   Config
	seats []*Seat
	deck  *poker.Deck
	pm    *PotManager
	log   *log.Logger

	street Street
	round  *BettingRound
	board  []poker.Card
	toAct  int

	events []Event
	seq    uint64

	done   bool
	result *CompletedHand
}

// NewHand validates the lineup, posts antes and blinds, deals hole
// cards and opens preflop betting. The deck must already be shuffled;
// injecting it keeps hands reproducible from a seed and lets tests
// stack exact cards. seats is dense: seats[i].Index == i, with
// non-participants carrying a status other than SeatActive.
func NewHand(cfg Config, seats []*Seat, deck *poker.Deck, logger *log.Logger) (*Hand, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.BigBlind <= 0 {
		return nil, fmt.Errorf("big blind must be positive, got %d", cfg.BigBlind)
	}
	if cfg.Button < 0 || cfg.Button >= len(seats) {
		return nil, fmt.Errorf("button seat %d out of range", cfg.Button)
	}
	for i, s := range seats {
		if s.Index != i {
			return nil, fmt.Errorf("seat %d carries index %d", i, s.Index)
		}
	}

	h := &Hand{
		cfg:   cfg,
		seats: seats,
		deck:  deck,
		pm:    NewPotManager(len(seats)),
		log:   logger.WithPrefix("hand").With("hand_id", cfg.HandID),
		toAct: -1,
	}

	var infos []SeatInfo
	participants := 0
	for _, s := range seats {
		if s.Status != SeatActive {
			s.StartStack = 0
			continue
		}
		if s.Stack <= 0 {
			return nil, fmt.Errorf("seat %d active with empty stack", s.Index)
		}
		participants++
		s.StartStack = s.Stack
		s.StreetBet = 0
		s.HandBet = 0
		s.Hole = nil
		infos = append(infos, SeatInfo{Seat: s.Index, PlayerID: s.PlayerID, Stack: s.Stack})
	}
	if participants < 2 {
		return nil, fmt.Errorf("need at least 2 active seats, have %d", participants)
	}

	h.emit(HandStarted{
		seqBase:    h.stamp(),
		HandID:     cfg.HandID,
		TableID:    cfg.TableID,
		Variant:    cfg.Variant,
		Structure:  cfg.Structure,
		Button:     cfg.Button,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		Ante:       cfg.Ante,
		Seats:      infos,
	})

	h.postAntes()
	sb, bb := h.blindSeats()
	if cfg.SmallBlind > 0 {
		h.postBlind(sb, "small_blind", cfg.SmallBlind)
	}
	h.postBlind(bb, "big_blind", cfg.BigBlind)
	h.dealHoleCards()

	h.street = Preflop
	h.round = NewBettingRound(Preflop, len(seats), cfg.BigBlind, cfg.Structure)
	h.round.CurrentBet = cfg.BigBlind
	h.round.LastAggressor = bb
	h.toAct = h.nextCanAct(bb)

	h.log.Debug("hand opened", "variant", cfg.Variant, "button", cfg.Button, "players", participants)

	// Blinds and antes can leave nobody with chips to bet.
	if err := h.maybeAdvance(); err != nil {
		return nil, err
	}
	return h, nil
}

// Events returns the full event stream so far. The slice grows in
// place; callers track their own cursor.
func (h *Hand) Events() []Event { return h.events }

// Done reports whether the hand has ended, normally or by abort.
func (h *Hand) Done() bool { return h.done }

// Result returns the immutable record of a finished hand, nil before.
func (h *Hand) Result() *CompletedHand { return h.result }

// Street returns the current betting phase.
func (h *Hand) Street() Street { return h.street }

// Board returns the community cards dealt so far.
func (h *Hand) Board() []poker.Card { return h.board }

// ToAct returns the seat whose turn it is, or -1 when no action is
// pending.
func (h *Hand) ToAct() int {
	if h.done {
		return -1
	}
	return h.toAct
}

// Seat exposes a seat's state for the table runtime.
func (h *Hand) Seat(idx int) *Seat { return h.seats[idx] }

// Pots returns the settled pot layers with pending street bets folded
// into the top layer.
func (h *Hand) Pots() []Pot { return h.pm.PotsWithPending() }

// LegalActions returns the action set for the seat to act, nil when no
// action is pending.
func (h *Hand) LegalActions() []ActionOption {
	if h.done || h.toAct < 0 {
		return nil
	}
	return h.round.LegalActions(h.seats[h.toAct], h.pm.Total())
}

// Submit applies one player action. amount carries bet-to semantics
// for Bet and Raise and is ignored for the rest. On any error the hand
// state is exactly as it was before the call.
func (h *Hand) Submit(seat int, action ActionType, amount int) error {
	return h.submit(seat, action, amount, false)
}

// SubmitForced applies the default action for the seat to act: check
// when free, fold otherwise. The table runtime calls this on timeout
// and on disconnect.
func (h *Hand) SubmitForced(seat int) error {
	if h.done {
		return ErrHandComplete
	}
	if seat != h.toAct {
		return illegal(seat, Check, ReasonWrongTurn, fmt.Sprintf("seat %d to act", h.toAct))
	}
	s := h.seats[seat]
	if h.round.CurrentBet-s.StreetBet == 0 {
		return h.submit(seat, Check, 0, true)
	}
	return h.submit(seat, Fold, 0, true)
}

func (h *Hand) submit(seat int, action ActionType, amount int, forced bool) error {
	if h.done {
		return ErrHandComplete
	}
	if h.street >= Showdown || h.toAct < 0 {
		return illegal(seat, action, ReasonBettingClosed, "")
	}
	if seat < 0 || seat >= len(h.seats) {
		return illegal(seat, action, ReasonNotLegal, "no such seat")
	}
	if seat != h.toAct {
		return illegal(seat, action, ReasonWrongTurn, fmt.Sprintf("seat %d to act", h.toAct))
	}
	s := h.seats[seat]
	if err := h.round.validate(s, action, amount, h.pm.Total()); err != nil {
		return err
	}

	moved := h.apply(s, action, amount)
	h.emit(ActionTaken{
		seqBase: h.stamp(),
		Seat:    seat,
		Street:  h.street,
		Action:  action,
		Amount:  moved,
		Forced:  forced,
	})
	h.log.Debug("action", "seat", seat, "action", action, "amount", moved, "forced", forced)

	if h.round.complete(h.seats) {
		return h.maybeAdvance()
	}
	h.toAct = h.nextCanAct(seat)
	if h.toAct < 0 {
		return h.maybeAdvance()
	}
	return nil
}

// apply mutates seat, pot and round state for a validated action and
// returns the chips moved.
func (h *Hand) apply(s *Seat, action ActionType, amount int) int {
	switch action {
	case Fold:
		s.Status = SeatFolded
		h.pm.Fold(s.Index)
		h.round.markActed(s.Index)
		return 0
	case Check:
		h.round.markActed(s.Index)
		return 0
	case Call:
		moved := s.commit(h.round.CurrentBet - s.StreetBet)
		h.pm.Commit(s.Index, moved)
		h.round.markActed(s.Index)
		return moved
	case Bet:
		moved := s.commit(amount - s.StreetBet)
		h.pm.Commit(s.Index, moved)
		h.round.CurrentBet = s.StreetBet
		if s.StreetBet >= h.round.bigBlind {
			if s.StreetBet > h.round.MinRaise {
				h.round.MinRaise = s.StreetBet
			}
			h.round.reopen(s.Index)
		} else {
			// An all-in for less than the minimum bet: seats that
			// already checked may call or fold but not raise, and the
			// raise increment stays at the big blind.
			h.round.markActed(s.Index)
		}
		return moved
	case Raise:
		moved := s.commit(amount - s.StreetBet)
		h.pm.Commit(s.Index, moved)
		h.raiseTo(s)
		return moved
	case AllIn:
		target := s.StreetBet + s.Stack
		if max := h.round.maxBetTo(s, h.pm.Total()); h.round.Structure == PotLimit && target > max && max > h.round.CurrentBet {
			target = max
		}
		moved := s.commit(target - s.StreetBet)
		h.pm.Commit(s.Index, moved)
		if s.StreetBet > h.round.CurrentBet {
			h.raiseTo(s)
		} else {
			h.round.markActed(s.Index)
		}
		return moved
	}
	return 0
}

// raiseTo updates round state after a seat's street bet exceeds the
// outstanding bet. A raise of at least the minimum increment reopens
// betting for everyone; a short all-in raises the amount to call but
// leaves acted flags alone, so seats that already acted may only call
// or fold.
func (h *Hand) raiseTo(s *Seat) {
	increment := s.StreetBet - h.round.CurrentBet
	h.round.CurrentBet = s.StreetBet
	if increment >= h.round.MinRaise {
		h.round.MinRaise = increment
		h.round.reopen(s.Index)
	} else {
		h.round.markActed(s.Index)
	}
}

// Abort ends the hand abnormally, returning every chip in flight to
// its contributor.
func (h *Hand) Abort(reason string) {
	if h.done {
		return
	}
	refunds := h.pm.RefundAll()
	for _, r := range refunds {
		s := h.seats[r.Seat]
		s.Stack += r.Amount
		s.StreetBet = 0
		s.HandBet = 0
		if s.Status == SeatAllIn {
			s.Status = SeatActive
		}
	}
	h.emit(HandAborted{seqBase: h.stamp(), Reason: reason, Refunds: refunds})
	h.log.Warn("hand aborted", "reason", reason)
	h.done = true
	h.toAct = -1
	h.result, _ = BuildCompletedHand(h.events)
}

// abortOnInvariant wraps a fatal bookkeeping failure: refund and
// surface.
func (h *Hand) abortOnInvariant(err error) error {
	h.Abort(err.Error())
	return err
}

// maybeAdvance drives the hand forward while no player action is
// pending: settles completed streets, deals the next board, runs out
// all-in hands and triggers showdown.
func (h *Hand) maybeAdvance() error {
	for !h.done && h.round.complete(h.seats) {
		if err := h.settleStreet(); err != nil {
			return h.abortOnInvariant(err)
		}
		if h.inHandCount() <= 1 {
			return h.finishFoldOut()
		}
		if h.street == River {
			return h.showdown()
		}
		if h.canActCount() < 2 {
			// Betting is over for good: run the board out.
			for h.street < River {
				h.dealNextStreet()
			}
			return h.showdown()
		}
		h.dealNextStreet()
		h.round = NewBettingRound(h.street, len(h.seats), h.cfg.BigBlind, h.cfg.Structure)
		h.toAct = h.nextCanAct(h.cfg.Button)
	}
	return nil
}

// settleStreet collects street bets into the pot layers.
func (h *Hand) settleStreet() error {
	for _, s := range h.seats {
		s.HandBet += s.StreetBet
		s.StreetBet = 0
	}
	pots, err := h.pm.SettleStreet(h.seats)
	if err != nil {
		return err
	}
	h.emit(PotsUpdated{seqBase: h.stamp(), Pots: pots})
	return h.checkConservation()
}

// checkConservation verifies no chips appeared or vanished: stacks
// plus everything in flight must equal the starting stacks.
func (h *Hand) checkConservation() error {
	have := h.pm.Total()
	want := 0
	for _, s := range h.seats {
		if s.StartStack > 0 {
			have += s.Stack + s.StreetBet
			want += s.StartStack
		}
	}
	if have != want {
		return &InvariantViolationError{Detail: fmt.Sprintf("chips in play %d, dealt in %d", have, want)}
	}
	return nil
}

func (h *Hand) dealNextStreet() {
	h.street++
	h.deck.Burn()
	var cards []poker.Card
	if h.street == Flop {
		cards = h.deck.Draw(3)
	} else {
		cards = h.deck.Draw(1)
	}
	h.board = append(h.board, cards...)
	h.emit(StreetAdvanced{seqBase: h.stamp(), Street: h.street})
	h.emit(CommunityDealt{seqBase: h.stamp(), Street: h.street, Cards: cards})
}

// finishFoldOut ends a hand where everyone else folded. Pot layers all
// hold a single eligible seat, so distribution needs no evaluation.
func (h *Hand) finishFoldOut() error {
	winner := -1
	for _, s := range h.seats {
		if s.InHand() {
			winner = s.Index
		}
	}
	if winner < 0 {
		return h.abortOnInvariant(&InvariantViolationError{Detail: "no seats left in hand"})
	}
	awards, err := h.pm.Distribute([]Contender{{Seat: winner, HighKey: 1}}, h.cfg.Button, len(h.seats))
	if err != nil {
		return h.abortOnInvariant(err)
	}
	return h.finish(awards)
}

// showdown evaluates every live hand, reveals in clockwise order from
// the button, and distributes each pot layer.
func (h *Hand) showdown() error {
	h.street = Showdown
	var contenders []Contender
	for off := 1; off <= len(h.seats); off++ {
		s := h.seats[(h.cfg.Button+off)%len(h.seats)]
		if !s.InHand() {
			continue
		}
		res, err := poker.Evaluate(s.Hole, h.board, h.cfg.Variant)
		if err != nil {
			return h.abortOnInvariant(&InvariantViolationError{Detail: fmt.Sprintf("seat %d evaluation: %v", s.Index, err)})
		}
		c := Contender{Seat: s.Index, HighKey: res.High.Key}
		rev := HandRevealed{
			seqBase:  h.stamp(),
			Seat:     s.Index,
			Cards:    s.Hole,
			HighDesc: res.High.Describe(),
		}
		if res.Low != nil {
			c.LowKey = res.Low.Key
			rev.LowDesc = res.Low.Describe()
		}
		contenders = append(contenders, c)
		h.emit(rev)
	}

	awards, err := h.pm.Distribute(contenders, h.cfg.Button, len(h.seats))
	if err != nil {
		return h.abortOnInvariant(err)
	}
	return h.finish(awards)
}

// finish applies pot awards to stacks, emits the closing events and
// freezes the hand record.
func (h *Hand) finish(awards []PotAward) error {
	h.emit(PotsAwarded{seqBase: h.stamp(), Awards: awards})

	paid := map[int]int{}
	for _, a := range awards {
		h.seats[a.Seat].Stack += a.Amount
		paid[a.Seat] += a.Amount
	}

	var payouts []Payout
	var stacks []SeatInfo
	for _, s := range h.seats {
		if s.StartStack == 0 {
			continue
		}
		if amt, ok := paid[s.Index]; ok {
			payouts = append(payouts, Payout{Seat: s.Index, Amount: amt})
		}
		stacks = append(stacks, SeatInfo{Seat: s.Index, PlayerID: s.PlayerID, Stack: s.Stack})
	}

	total := 0
	want := 0
	for _, s := range h.seats {
		if s.StartStack > 0 {
			total += s.Stack
			want += s.StartStack
		}
	}
	if total != want {
		return h.abortOnInvariant(&InvariantViolationError{Detail: fmt.Sprintf("final stacks %d, dealt in %d", total, want)})
	}

	h.emit(HandEnded{seqBase: h.stamp(), Payouts: payouts, Stacks: stacks})
	h.done = true
	h.toAct = -1

	result, err := BuildCompletedHand(h.events)
	if err != nil {
		return h.abortOnInvariant(&InvariantViolationError{Detail: "record build: " + err.Error()})
	}
	h.result = result
	h.log.Info("hand complete", "payouts", len(payouts), "pots", len(h.pm.Pots()))
	return nil
}

// postAntes takes the ante from every participant before the blinds.
func (h *Hand) postAntes() {
	if h.cfg.Ante <= 0 {
		return
	}
	for off := 1; off <= len(h.seats); off++ {
		s := h.seats[(h.cfg.Button+off)%len(h.seats)]
		if s.Status != SeatActive && s.Status != SeatAllIn {
			continue
		}
		pay := h.cfg.Ante
		if pay > s.Stack {
			pay = s.Stack
		}
		s.Stack -= pay
		s.HandBet += pay
		h.pm.Commit(s.Index, pay)
		if s.Stack == 0 && s.Status == SeatActive {
			s.Status = SeatAllIn
		}
		h.emit(BlindPosted{seqBase: h.stamp(), Seat: s.Index, Kind: "ante", Amount: pay, AllIn: s.Status == SeatAllIn})
	}
}

// blindSeats returns small and big blind positions. Heads up the
// button posts the small blind and acts first preflop.
func (h *Hand) blindSeats() (sb, bb int) {
	if h.participantCount() == 2 {
		sb = h.nextParticipant(h.cfg.Button - 1) // the button itself
		bb = h.nextParticipant(sb)
		return sb, bb
	}
	sb = h.nextParticipant(h.cfg.Button)
	bb = h.nextParticipant(sb)
	return sb, bb
}

func (h *Hand) postBlind(seat int, kind string, amount int) {
	s := h.seats[seat]
	moved := s.commit(amount)
	h.pm.Commit(seat, moved)
	h.emit(BlindPosted{seqBase: h.stamp(), Seat: seat, Kind: kind, Amount: moved, AllIn: s.Status == SeatAllIn})
}

// dealHoleCards deals one card at a time clockwise from the small
// blind, then emits each seat's complete hole privately.
func (h *Hand) dealHoleCards() {
	count := h.cfg.Variant.HoleCardCount()
	for c := 0; c < count; c++ {
		for off := 1; off <= len(h.seats); off++ {
			s := h.seats[(h.cfg.Button+off)%len(h.seats)]
			if !s.InHand() {
				continue
			}
			s.Hole = append(s.Hole, h.deck.DrawOne())
		}
	}
	for off := 1; off <= len(h.seats); off++ {
		s := h.seats[(h.cfg.Button+off)%len(h.seats)]
		if !s.InHand() {
			continue
		}
		h.emit(HoleDealt{seqBase: h.stamp(), Seat: s.Index, Cards: s.Hole})
	}
}

func (h *Hand) participantCount() int {
	n := 0
	for _, s := range h.seats {
		if s.InHand() {
			n++
		}
	}
	return n
}

func (h *Hand) inHandCount() int { return h.participantCount() }

func (h *Hand) canActCount() int {
	n := 0
	for _, s := range h.seats {
		if s.CanAct() {
			n++
		}
	}
	return n
}

// nextCanAct returns the first seat after from that can act, -1 if
// none.
func (h *Hand) nextCanAct(from int) int {
	for off := 1; off <= len(h.seats); off++ {
		s := h.seats[(from+off)%len(h.seats)]
		if s.CanAct() {
			return s.Index
		}
	}
	return -1
}

// nextParticipant returns the first seat after from still in the hand.
func (h *Hand) nextParticipant(from int) int {
	n := len(h.seats)
	for off := 1; off <= n; off++ {
		s := h.seats[((from+off)%n+n)%n]
		if s.InHand() {
			return s.Index
		}
	}
	return -1
}

func (h *Hand) stamp() seqBase {
	h.seq++
	return seqBase{Seq: h.seq}
}

func (h *Hand) emit(e Event) {
	h.events = append(h.events, e)
}
