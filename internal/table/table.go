// Package table runs poker tables. Each table owns one goroutine that
// applies every mutation in arrival order: player actions, seating,
// timer expiries and shutdown all funnel through the same command
// channel, so the engine below never needs a lock.
package table

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/oklog/ulid/v2"
	"github.com/thoas/go-funk"

	"github.com/openfelt/cardroom/internal/engine"
	"github.com/openfelt/cardroom/internal/history"
	"github.com/openfelt/cardroom/poker"
)

// Config fixes a table's game and timing parameters.
type Config struct {
	Variant    poker.Variant
	Structure  engine.Structure
	SmallBlind int
	BigBlind   int
	Ante       int
	MaxSeats   int
	MinBuyIn   int
	MaxBuyIn   int

	// ActionTimeout bounds each decision; TimeBank is a per-seat
	// reserve drawn automatically when the base timeout expires, with
	// only the time actually used deducted.
	ActionTimeout time.Duration
	TimeBank      time.Duration
	// HandDelay separates the end of one hand from the next deal.
	HandDelay time.Duration
	// SitOutAfterMisses benches a seat after this many consecutive
	// timed-out turns.
	SitOutAfterMisses int
}

// Validate rejects configurations no hand could be dealt under.
func (c Config) Validate() error {
	if c.BigBlind <= 0 {
		return fmt.Errorf("big blind must be positive")
	}
	if c.SmallBlind < 0 || c.SmallBlind > c.BigBlind {
		return fmt.Errorf("small blind %d outside [0, %d]", c.SmallBlind, c.BigBlind)
	}
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("max seats %d outside [2, 10]", c.MaxSeats)
	}
	if _, err := poker.ParseVariant(string(c.Variant)); err != nil {
		return err
	}
	// A full table must fit in one deck: holes, three burns, five board
	// cards.
	if need := c.MaxSeats*c.Variant.HoleCardCount() + 8; need > 52 {
		return fmt.Errorf("%d seats of %s needs %d cards, deck has 52", c.MaxSeats, c.Variant, need)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("buy-in range [%d, %d] invalid", c.MinBuyIn, c.MaxBuyIn)
	}
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("action timeout must be positive")
	}
	if _, err := engine.ParseStructure(string(c.Structure)); err != nil {
		return err
	}
	return nil
}

// LedgerNotifier receives payout instructions when a hand settles.
// Stacks are table-local; the ledger is the system of record outside.
type LedgerNotifier interface {
	HandSettled(tableID, handID string, payouts []engine.Payout)
}

// NopLedger discards settlement notifications.
type NopLedger struct{}

func (NopLedger) HandSettled(string, string, []engine.Payout) {}

// ErrTableClosed is returned for any call against a closed table.
var ErrTableClosed = errors.New("table closed")

type command func()

// Table is one running table. All exported methods are safe for
// concurrent use: they post to the command loop and wait.
type Table struct {
	id      string
	cfg     Config
	pending *Config

	clock   quartz.Clock
	rng     *rand.Rand
	entropy *ulid.MonotonicEntropy
	logger  *log.Logger
	writer  history.Writer
	ledger  LedgerNotifier

	seats  []*engine.Seat
	button int
	hand   *engine.Hand
	cursor int // events already published

	connected map[int]bool
	leaving   map[int]bool
	benched   map[int]bool // sat out after repeated timeouts
	misses    map[int]int

	timerGen  uint64
	turnTimer *quartz.Timer
	handTimer *quartz.Timer
	lastTurn  turnKey
	bankSeat  int // seat currently drawing its time bank, -1 if none
	bankFrom  time.Time

	subs   map[int]*subscriber
	nextID int

	cmds    chan command
	stopped chan struct{}
}

type turnKey struct {
	seat int
	seq  int
}

type subscriber struct {
	playerID string
	ch       chan engine.Event
}

// New creates a table and starts its command loop.
func New(id string, cfg Config, clock quartz.Clock, rng *rand.Rand, writer history.Writer, ledger LedgerNotifier, logger *log.Logger) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("table config: %w", err)
	}
	if writer == nil {
		writer = history.NopWriter{}
	}
	if ledger == nil {
		ledger = NopLedger{}
	}
	t := &Table{
		id:        id,
		cfg:       cfg,
		clock:     clock,
		rng:       rng,
		entropy:   ulid.Monotonic(rng, 0),
		logger:    logger.WithPrefix("table").With("table_id", id),
		writer:    writer,
		ledger:    ledger,
		seats:     make([]*engine.Seat, cfg.MaxSeats),
		button:    cfg.MaxSeats - 1,
		connected: make(map[int]bool),
		leaving:   make(map[int]bool),
		benched:   make(map[int]bool),
		misses:    make(map[int]int),
		bankSeat:  -1,
		subs:      make(map[int]*subscriber),
		cmds:      make(chan command, 64),
		stopped:   make(chan struct{}),
	}
	for i := range t.seats {
		t.seats[i] = &engine.Seat{Index: i, Status: engine.SeatSittingOut}
	}
	go t.run()
	return t, nil
}

func (t *Table) run() {
	for {
		select {
		case cmd := <-t.cmds:
			cmd()
		case <-t.stopped:
			return
		}
	}
}

// do runs fn on the table goroutine and waits for it.
func (t *Table) do(fn func()) error {
	done := make(chan struct{})
	select {
	case t.cmds <- func() { fn(); close(done) }:
	case <-t.stopped:
		return ErrTableClosed
	}
	select {
	case <-done:
		return nil
	case <-t.stopped:
		return ErrTableClosed
	}
}

// ID returns the table identifier.
func (t *Table) ID() string { return t.id }

// Close aborts any hand in progress, refunds contributions and stops
// the command loop.
func (t *Table) Close() error {
	return t.do(func() {
		if t.hand != nil && !t.hand.Done() {
			t.hand.Abort("table closed")
			t.publish()
			t.finishHand()
		}
		t.cancelTimers()
		for _, sub := range t.subs {
			close(sub.ch)
		}
		t.subs = nil
		close(t.stopped)
	})
}

// SeatPlayer seats a player with a buy-in. seat -1 picks the first
// open seat. Returns the seat index; the player joins the next hand.
func (t *Table) SeatPlayer(playerID string, seat, buyIn int) (int, error) {
	idx := -1
	err := t.do(func() {
		idx = -1
		if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
			return
		}
		if t.seatOf(playerID) >= 0 {
			return
		}
		if seat == -1 {
			for i, s := range t.seats {
				if s.PlayerID == "" {
					seat = i
					break
				}
			}
		}
		if seat < 0 || seat >= len(t.seats) || t.seats[seat].PlayerID != "" {
			return
		}
		s := t.seats[seat]
		s.PlayerID = playerID
		s.Stack = buyIn
		s.Status = engine.SeatWaiting
		s.TimeBank = t.cfg.TimeBank
		t.connected[seat] = true
		t.misses[seat] = 0
		idx = seat
		t.logger.Info("player seated", "player", playerID, "seat", seat, "buy_in", buyIn)
		t.broadcast(engine.SeatJoined{Seat: seat, PlayerID: playerID, Stack: buyIn})
		t.maybeScheduleHand()
	})
	if err != nil {
		return -1, err
	}
	if idx < 0 {
		return -1, fmt.Errorf("cannot seat %s: seat taken, already seated, or buy-in outside [%d, %d]",
			playerID, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}
	return idx, nil
}

// LeaveTable removes a player. Mid-hand the seat is folded at its next
// turn and freed when the hand ends; between hands it frees now.
func (t *Table) LeaveTable(playerID string) error {
	var rerr error
	err := t.do(func() {
		seat := t.seatOf(playerID)
		if seat < 0 {
			rerr = fmt.Errorf("player %s not seated", playerID)
			return
		}
		// A seat dealt into the running hand keeps its chips in play
		// until the hand settles; it is folded at its turn and freed
		// after.
		if t.handActive() && t.seats[seat].StartStack > 0 {
			t.leaving[seat] = true
			t.forceDefaultActions()
			t.afterChange()
			return
		}
		t.freeSeat(seat)
	})
	if err != nil {
		return err
	}
	return rerr
}

// SubmitAction applies a player's betting action to the current hand.
func (t *Table) SubmitAction(playerID string, action engine.ActionType, amount int) error {
	var rerr error
	err := t.do(func() {
		seat := t.seatOf(playerID)
		if seat < 0 {
			rerr = fmt.Errorf("player %s not seated", playerID)
			return
		}
		if !t.handActive() {
			rerr = engine.ErrHandComplete
			return
		}
		if rerr = t.hand.Submit(seat, action, amount); rerr != nil {
			return
		}
		t.misses[seat] = 0
		t.forceDefaultActions()
		t.afterChange()
	})
	if err != nil {
		return err
	}
	return rerr
}

// SetConnected updates a player's link state. A disconnected player is
// folded (or checked) whenever action reaches them and sits out future
// hands until they reconnect.
func (t *Table) SetConnected(playerID string, connected bool) error {
	return t.do(func() {
		seat := t.seatOf(playerID)
		if seat < 0 {
			return
		}
		t.connected[seat] = connected
		t.logger.Info("connection state", "player", playerID, "connected", connected)
		if connected {
			t.maybeScheduleHand()
			return
		}
		if t.handActive() {
			t.forceDefaultActions()
			t.afterChange()
		}
	})
}

// Reconfigure stages new parameters; they apply from the next hand.
// The seat count is fixed for the table's lifetime.
func (t *Table) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("table config: %w", err)
	}
	var rerr error
	err := t.do(func() {
		if cfg.MaxSeats != t.cfg.MaxSeats {
			rerr = fmt.Errorf("max seats is fixed at %d", t.cfg.MaxSeats)
			return
		}
		t.pending = &cfg
		t.logger.Info("reconfigure staged", "small_blind", cfg.SmallBlind, "big_blind", cfg.BigBlind)
		if !t.handActive() {
			t.applyPending()
		}
	})
	if err != nil {
		return err
	}
	return rerr
}

// Subscribe registers an event listener for the given player. Private
// events are delivered only to the seat they belong to; everything
// else fans out to all subscribers. Cancel with the returned func.
func (t *Table) Subscribe(playerID string, buffer int) (<-chan engine.Event, func(), error) {
	var (
		ch     chan engine.Event
		cancel func()
	)
	err := t.do(func() {
		ch = make(chan engine.Event, buffer)
		id := t.nextID
		t.nextID++
		t.subs[id] = &subscriber{playerID: playerID, ch: ch}
		cancel = func() {
			_ = t.do(func() {
				if sub, ok := t.subs[id]; ok {
					delete(t.subs, id)
					close(sub.ch)
				}
			})
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return ch, cancel, nil
}

// SeatState is one seat in a table snapshot.
type SeatState struct {
	Seat      int           `json:"seat"`
	PlayerID  string        `json:"player_id"`
	Stack     int           `json:"stack"`
	Status    string        `json:"status"`
	Connected bool          `json:"connected"`
	TimeBank  time.Duration `json:"time_bank"`
}

// State is a point-in-time view of the table for display and for
// clients joining mid-hand.
type State struct {
	ID         string                `json:"id"`
	Variant    poker.Variant         `json:"variant"`
	Structure  engine.Structure      `json:"structure"`
	SmallBlind int                   `json:"small_blind"`
	BigBlind   int                   `json:"big_blind"`
	Ante       int                   `json:"ante"`
	Button     int                   `json:"button"`
	HandActive bool                  `json:"hand_active"`
	Street     string                `json:"street,omitempty"`
	Board      []poker.Card          `json:"board,omitempty"`
	ToAct      int                   `json:"to_act"`
	Options    []engine.ActionOption `json:"options,omitempty"`
	Pots       []engine.Pot          `json:"pots,omitempty"`
	Seats      []SeatState           `json:"seats"`
}

// State snapshots the table.
func (t *Table) State() (State, error) {
	var st State
	err := t.do(func() {
		st = State{
			ID:         t.id,
			Variant:    t.cfg.Variant,
			Structure:  t.cfg.Structure,
			SmallBlind: t.cfg.SmallBlind,
			BigBlind:   t.cfg.BigBlind,
			Ante:       t.cfg.Ante,
			Button:     t.button,
			ToAct:      -1,
		}
		if t.handActive() {
			st.HandActive = true
			st.Street = t.hand.Street().String()
			st.Board = t.hand.Board()
			st.ToAct = t.hand.ToAct()
			st.Options = t.hand.LegalActions()
			st.Pots = t.hand.Pots()
		}
		for i, s := range t.seats {
			if s.PlayerID == "" {
				continue
			}
			st.Seats = append(st.Seats, SeatState{
				Seat:      i,
				PlayerID:  s.PlayerID,
				Stack:     s.Stack,
				Status:    s.Status.String(),
				Connected: t.connected[i],
				TimeBank:  s.TimeBank,
			})
		}
	})
	return st, err
}

// seatOf finds a player's seat index, -1 if absent.
func (t *Table) seatOf(playerID string) int {
	if playerID == "" {
		return -1
	}
	s := funk.Find(t.seats, func(s *engine.Seat) bool { return s.PlayerID == playerID })
	if s == nil {
		return -1
	}
	return s.(*engine.Seat).Index
}

func (t *Table) handActive() bool {
	return t.hand != nil && !t.hand.Done()
}

func (t *Table) freeSeat(seat int) {
	s := t.seats[seat]
	t.logger.Info("seat freed", "player", s.PlayerID, "seat", seat, "stack", s.Stack)
	t.broadcast(engine.SeatLeft{Seat: seat, PlayerID: s.PlayerID, Stack: s.Stack})
	*s = engine.Seat{Index: seat, Status: engine.SeatSittingOut}
	delete(t.connected, seat)
	delete(t.leaving, seat)
	delete(t.benched, seat)
	delete(t.misses, seat)
}

// maybeScheduleHand arms the next-deal timer when no hand is running
// and enough players are ready.
func (t *Table) maybeScheduleHand() {
	if t.handActive() || t.handTimer != nil {
		return
	}
	if len(t.eligibleSeats()) < 2 {
		return
	}
	t.handTimer = t.clock.AfterFunc(t.cfg.HandDelay, func() {
		_ = t.do(func() {
			t.handTimer = nil
			t.startHand()
		})
	})
}

// eligibleSeats lists seats that can be dealt into the next hand.
func (t *Table) eligibleSeats() []int {
	var out []int
	for i, s := range t.seats {
		if s.PlayerID == "" || s.Stack < t.cfg.BigBlind {
			continue
		}
		if !t.connected[i] || t.leaving[i] || t.benched[i] {
			continue
		}
		out = append(out, i)
	}
	return out
}

func (t *Table) startHand() {
	if t.handActive() {
		return
	}
	t.applyPending()
	eligible := t.eligibleSeats()
	if len(eligible) < 2 {
		return
	}
	for i, s := range t.seats {
		if funk.ContainsInt(eligible, i) {
			s.Status = engine.SeatActive
		} else if s.PlayerID != "" {
			s.Status = engine.SeatSittingOut
		}
	}
	t.button = t.nextEligibleAfter(t.button, eligible)

	handID := ulid.MustNew(ulid.Timestamp(t.clock.Now()), t.entropy).String()
	cfg := engine.Config{
		HandID:     handID,
		TableID:    t.id,
		Variant:    t.cfg.Variant,
		Structure:  t.cfg.Structure,
		Button:     t.button,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		Ante:       t.cfg.Ante,
	}
	hand, err := engine.NewHand(cfg, t.seats, poker.NewDeck(t.rng), t.logger)
	if err != nil {
		t.logger.Error("hand start failed", "error", err)
		return
	}
	t.hand = hand
	t.cursor = 0
	t.lastTurn = turnKey{seat: -1}
	t.forceDefaultActions()
	t.afterChange()
}

func (t *Table) nextEligibleAfter(from int, eligible []int) int {
	n := len(t.seats)
	for off := 1; off <= n; off++ {
		idx := (from + off) % n
		if funk.ContainsInt(eligible, idx) {
			return idx
		}
	}
	return from
}

func (t *Table) applyPending() {
	if t.pending == nil {
		return
	}
	t.cfg = *t.pending
	t.pending = nil
	t.logger.Info("configuration applied", "small_blind", t.cfg.SmallBlind, "big_blind", t.cfg.BigBlind, "ante", t.cfg.Ante)
}

// forceDefaultActions plays check-or-fold for seats that cannot act
// for themselves: disconnected or leaving players.
func (t *Table) forceDefaultActions() {
	for t.handActive() {
		seat := t.hand.ToAct()
		if seat < 0 || (t.connected[seat] && !t.leaving[seat]) {
			return
		}
		if err := t.hand.SubmitForced(seat); err != nil {
			t.logger.Error("forced action failed", "seat", seat, "error", err)
			return
		}
	}
}

// afterChange publishes new events, settles a finished hand, and
// re-arms the turn timer. Every command that can mutate the hand ends
// here.
func (t *Table) afterChange() {
	t.publish()
	if t.hand == nil {
		return
	}
	if t.hand.Done() {
		t.finishHand()
		t.maybeScheduleHand()
		return
	}
	t.armTurnTimer()
}

// broadcast fans a table-level event out to every subscriber. These
// sit outside any hand's sequence.
func (t *Table) broadcast(e engine.Event) {
	for _, sub := range t.subs {
		select {
		case sub.ch <- e:
		default:
			t.logger.Warn("subscriber lagging, event dropped", "player", sub.playerID, "event", e.Type())
		}
	}
}

func (t *Table) publish() {
	if t.hand == nil {
		return
	}
	events := t.hand.Events()
	for ; t.cursor < len(events); t.cursor++ {
		e := events[t.cursor]
		seat, private := engine.IsPrivate(e)
		for _, sub := range t.subs {
			if private && sub.playerID != t.seats[seat].PlayerID {
				continue
			}
			select {
			case sub.ch <- e:
			default:
				t.logger.Warn("subscriber lagging, event dropped", "player", sub.playerID, "event", e.Type())
			}
		}
	}
}

func (t *Table) finishHand() {
	rec := t.hand.Result()
	t.cancelTurnTimer()
	if rec != nil {
		if err := t.writer.WriteHand(rec, t.hand.Events()); err != nil {
			t.logger.Error("history write failed", "hand_id", rec.HandID, "error", err)
		}
		if len(rec.Payouts) > 0 {
			t.ledger.HandSettled(t.id, rec.HandID, rec.Payouts)
		}
	}
	t.hand = nil
	for i, s := range t.seats {
		if s.PlayerID == "" {
			continue
		}
		if t.leaving[i] || s.Stack == 0 {
			t.freeSeat(i)
		}
	}
}

// armTurnTimer schedules the decision deadline for the seat to act.
// The generation counter makes cancellation exact: a stale expiry that
// fires after Stop loses the race in the command loop and is ignored.
func (t *Table) armTurnTimer() {
	seat := t.hand.ToAct()
	if seat < 0 {
		t.cancelTurnTimer()
		return
	}
	key := turnKey{seat: seat, seq: t.cursor}
	if key == t.lastTurn {
		return // same decision point, keep the running timer
	}
	t.cancelTurnTimer()
	t.lastTurn = key
	t.scheduleExpiry(t.cfg.ActionTimeout)
}

func (t *Table) scheduleExpiry(d time.Duration) {
	t.timerGen++
	gen := t.timerGen
	t.turnTimer = t.clock.AfterFunc(d, func() {
		_ = t.do(func() { t.onTurnExpiry(gen) })
	})
}

// settleBank charges a seat for the extension time actually used when
// its turn resolves mid-bank; the rest of the reserve survives.
func (t *Table) settleBank() {
	if t.bankSeat < 0 {
		return
	}
	s := t.seats[t.bankSeat]
	used := t.clock.Now().Sub(t.bankFrom)
	if used >= s.TimeBank {
		s.TimeBank = 0
	} else {
		s.TimeBank -= used
	}
	t.bankSeat = -1
}

func (t *Table) cancelTurnTimer() {
	t.settleBank()
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	t.timerGen++
	t.lastTurn = turnKey{seat: -1}
}

func (t *Table) cancelTimers() {
	t.cancelTurnTimer()
	if t.handTimer != nil {
		t.handTimer.Stop()
		t.handTimer = nil
	}
}

func (t *Table) onTurnExpiry(gen uint64) {
	if gen != t.timerGen || !t.handActive() {
		return // cancelled or superseded
	}
	seat := t.hand.ToAct()
	if seat < 0 {
		return
	}
	s := t.hand.Seat(seat)
	if t.bankSeat < 0 && s.TimeBank > 0 {
		t.bankSeat = seat
		t.bankFrom = t.clock.Now()
		t.logger.Info("time bank drawn", "seat", seat, "remaining", s.TimeBank)
		t.scheduleExpiry(s.TimeBank)
		return
	}
	if t.bankSeat == seat {
		// The whole extension elapsed.
		s.TimeBank = 0
		t.bankSeat = -1
	}

	t.logger.Info("turn timed out", "seat", seat, "player", s.PlayerID)
	if err := t.hand.SubmitForced(seat); err != nil {
		t.timerFault(seat, err)
		return
	}
	t.misses[seat]++
	if t.cfg.SitOutAfterMisses > 0 && t.misses[seat] >= t.cfg.SitOutAfterMisses {
		t.benched[seat] = true
		t.logger.Info("seat benched after repeated timeouts", "seat", seat, "player", s.PlayerID)
	}
	t.forceDefaultActions()
	t.afterChange()
}

// timerFault handles an expiry that cannot inject the default action:
// with no timer armed the hand would wedge, so abort and refund rather
// than strand the chips.
func (t *Table) timerFault(seat int, cause error) {
	err := fmt.Errorf("%w: forced action for seat %d: %v", engine.ErrTimerFault, seat, cause)
	t.logger.Error("timer fault, aborting hand", "error", err)
	t.hand.Abort(err.Error())
	t.afterChange()
}
