package domain

import "errors"

// PassDirection is the round-cyclic rule deciding who receives each seat's
// three passed cards.
type PassDirection string

const (
	PassLeft   PassDirection = "left"
	PassRight  PassDirection = "right"
	PassAcross PassDirection = "across"
	PassHold   PassDirection = "hold"
)

// PassCount is the number of cards each seat passes when the direction is
// not hold.
const PassCount = 3

// Rejection reasons for pass selections.
var (
	ErrPassWrongCount  = errors.New("you must pass exactly three cards")
	ErrPassDuplicate   = errors.New("pass selection contains duplicate cards")
	ErrPassNotInHand   = errors.New("pass selection contains a card not in your hand")
	ErrAlreadySelected = errors.New("pass selection already submitted")
	ErrNoPassThisRound = errors.New("no passing this round")
)

// DirectionForRound returns the passing direction of the given 1-based round
// number, cycling left, right, across, hold.
func DirectionForRound(round int) PassDirection {
	switch (round - 1) % 4 {
	case 0:
		return PassLeft
	case 1:
		return PassRight
	case 2:
		return PassAcross
	}
	return PassHold
}

// TargetSeat computes which seat receives cards passed from seat under the
// direction. Calling it for PassHold is a contract violation; it returns the
// seat unchanged.
func (d PassDirection) TargetSeat(seat int) int {
	switch d {
	case PassLeft:
		return (seat + 1) % SeatCount
	case PassRight:
		return (seat + SeatCount - 1) % SeatCount
	case PassAcross:
		return (seat + 2) % SeatCount
	}
	return seat
}

// ValidateSelection checks a pass selection against the selecting hand:
// exactly three distinct cards, all currently held.
func ValidateSelection(hand, selection []Card) error {
	if len(selection) != PassCount {
		return ErrPassWrongCount
	}
	seen := make(map[Card]bool, PassCount)
	for _, c := range selection {
		if seen[c] {
			return ErrPassDuplicate
		}
		seen[c] = true
		if !ContainsCard(hand, c) {
			return ErrPassNotInHand
		}
	}
	return nil
}

// ExecutePass redistributes every seat's pending selection in one atomic
// step: remove the three cards from each selector's hand, stage them at the
// target seat, merge, re-sort, and clear all pass state. All four selections
// must be present before calling; that is the caller's contract.
func ExecutePass(players *[SeatCount]*Player, dir PassDirection) error {
	if dir == PassHold {
		return ErrNoPassThisRound
	}
	for seat, p := range players {
		target := players[dir.TargetSeat(seat)]
		for _, c := range p.PassSelection {
			var ok bool
			p.Hand, ok = RemoveCard(p.Hand, c)
			if !ok {
				return ErrPassNotInHand
			}
			target.PassIncoming = append(target.PassIncoming, c)
		}
	}
	for _, p := range players {
		p.Hand = append(p.Hand, p.PassIncoming...)
		SortHand(p.Hand)
		p.PassSelection = nil
		p.PassIncoming = nil
	}
	return nil
}
