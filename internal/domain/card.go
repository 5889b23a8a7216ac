package domain

import "fmt"

// Suit identifies one of the four card suits. The numeric order is the
// canonical hand-sort order (Clubs, Diamonds, Spades, Hearts); trick
// resolution never compares suits.
type Suit int32

const (
	SuitClubs Suit = iota
	SuitDiamonds
	SuitSpades
	SuitHearts
)

// String returns the single-letter suit code used in logs and payloads.
func (s Suit) String() string {
	switch s {
	case SuitClubs:
		return "C"
	case SuitDiamonds:
		return "D"
	case SuitSpades:
		return "S"
	case SuitHearts:
		return "H"
	}
	return "?"
}

// Rank is the card rank, 2..14 where 11=J, 12=Q, 13=K, 14=A. Higher rank
// wins within the led suit.
type Rank int32

const (
	RankTwo Rank = iota + 2
	RankThree
	RankFour
	RankFive
	RankSix
	RankSeven
	RankEight
	RankNine
	RankTen
	RankJack
	RankQueen
	RankKing
	RankAce
)

// String returns the short rank label ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	}
	return fmt.Sprintf("%d", int32(r))
}

// Card is a single playing card. Cards are immutable values compared by
// (suit, rank) equality.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// The two cards the rules single out.
var (
	TwoOfClubs    = Card{Suit: SuitClubs, Rank: RankTwo}
	QueenOfSpades = Card{Suit: SuitSpades, Rank: RankQueen}
)

// MaxRoundPoints is the sum of all point cards in one deal: 13 Hearts plus
// the Queen of Spades.
const MaxRoundPoints = 26

// Points returns the penalty value of the card: 1 for any Heart, 13 for the
// Queen of Spades, 0 otherwise.
func (c Card) Points() int {
	if c.Suit == SuitHearts {
		return 1
	}
	if c == QueenOfSpades {
		return 13
	}
	return 0
}

// String renders the card as rank+suit, e.g. "Q♠" style short form "QS".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// CardPower maps a card onto the canonical total order used for hand
// sorting: suits in display order, ranks ascending within a suit.
func CardPower(c Card) int32 {
	return int32(c.Suit)*13 + int32(c.Rank-RankTwo)
}
