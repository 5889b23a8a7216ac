package domain

import "fmt"

// Play is one (seat, card) entry in a trick, in play order.
type Play struct {
	Seat int  `json:"seat"`
	Card Card `json:"card"`
}

// Trick is the trick in progress: an ordered list of plays and the suit led
// by the first of them. LeadSuit is meaningful only once HasLead is true and
// never changes for the remainder of the trick.
type Trick struct {
	Plays    []Play
	LeadSuit Suit
	HasLead  bool
}

// NewTrick returns an empty trick.
func NewTrick() *Trick {
	return &Trick{}
}

// Add appends a play to the trick, recording the lead suit if this is the
// trick's first card.
func (t *Trick) Add(seat int, card Card) {
	if !t.HasLead {
		t.LeadSuit = card.Suit
		t.HasLead = true
	}
	t.Plays = append(t.Plays, Play{Seat: seat, Card: card})
}

// Complete reports whether all four seats have played into the trick.
func (t *Trick) Complete() bool {
	return len(t.Plays) == SeatCount
}

// TrickResult is the verdict of a resolved trick.
type TrickResult struct {
	WinnerSeat  int
	WinningCard Card
	Points      int
}

// ResolveTrick determines the winner and point total of a completed trick.
// The winner is the highest rank of the lead suit; off-suit cards never win.
// Calling this on an incomplete trick is a contract violation and returns an
// error the caller must treat as fatal.
func ResolveTrick(t *Trick) (TrickResult, error) {
	if !t.HasLead {
		return TrickResult{}, fmt.Errorf("resolve trick: no lead suit set")
	}
	if len(t.Plays) != SeatCount {
		return TrickResult{}, fmt.Errorf("resolve trick: %d plays, want %d", len(t.Plays), SeatCount)
	}

	winner := t.Plays[0]
	points := 0
	for _, p := range t.Plays {
		points += p.Card.Points()
	}
	for _, p := range t.Plays[1:] {
		if p.Card.Suit == t.LeadSuit && p.Card.Rank > winner.Card.Rank {
			winner = p
		}
	}

	return TrickResult{WinnerSeat: winner.Seat, WinningCard: winner.Card, Points: points}, nil
}
