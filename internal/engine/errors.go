package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across package boundaries.
var (
	ErrIllegalAction      = errors.New("illegal action")
	ErrInsufficientStack  = errors.New("insufficient stack")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrTimerFault         = errors.New("timer fault")
	ErrHandComplete       = errors.New("hand already complete")
)

// Reason narrows an illegal-action rejection so callers can tell the
// player exactly why nothing happened.
type Reason string

const (
	ReasonWrongTurn     Reason = "wrong_turn"
	ReasonNotLegal      Reason = "action_not_legal"
	ReasonBelowMinRaise Reason = "below_min_raise"
	ReasonAboveMaxBet   Reason = "above_max_bet"
	ReasonBettingClosed Reason = "street_already_closed"
	ReasonNotReopened   Reason = "betting_not_reopened"
	ReasonBadAmount     Reason = "amount_out_of_bounds"
)

// IllegalActionError rejects an action without mutating any state.
type IllegalActionError struct {
	Seat   int
	Action ActionType
	Reason Reason
	Detail string
}

func (e *IllegalActionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("seat %d: %s rejected: %s (%s)", e.Seat, e.Action, e.Reason, e.Detail)
	}
	return fmt.Sprintf("seat %d: %s rejected: %s", e.Seat, e.Action, e.Reason)
}

func (e *IllegalActionError) Is(target error) bool { return target == ErrIllegalAction }

func illegal(seat int, action ActionType, reason Reason, detail string) error {
	return &IllegalActionError{Seat: seat, Action: action, Reason: reason, Detail: detail}
}

// InsufficientStackError signals that the requested size exceeds the
// seat's stack. Where the rules allow it, the caller should resubmit
// as an all-in instead.
type InsufficientStackError struct {
	Seat      int
	Requested int
	Stack     int
}

func (e *InsufficientStackError) Error() string {
	return fmt.Sprintf("seat %d: requested %d with stack %d", e.Seat, e.Requested, e.Stack)
}

func (e *InsufficientStackError) Is(target error) bool {
	return target == ErrInsufficientStack || target == ErrIllegalAction
}

// InvariantViolationError is fatal for the hand: it means chips were
// about to be created or destroyed. The hand is aborted, contributions
// are refunded, and the fault is surfaced for operator investigation.
type InvariantViolationError struct {
	Detail string
}

func (e *InvariantViolationError) Error() string {
	return "invariant violation: " + e.Detail
}

func (e *InvariantViolationError) Is(target error) bool { return target == ErrInvariantViolation }
