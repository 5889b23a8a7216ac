package domain

import (
	"math/rand"
	"sort"
)

// NewDeck returns the ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for s := SuitClubs; s <= SuitHearts; s++ {
		for r := RankTwo; r <= RankAce; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// ShuffleDeck returns a shuffled copy of the given deck using the provided rng.
func ShuffleDeck(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SortHand orders a hand by the canonical comparator (suit, then rank).
func SortHand(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return CardPower(cards[i]) < CardPower(cards[j])
	})
}

// RemoveCard removes one occurrence of card from hand. The second return
// value reports whether the card was present.
func RemoveCard(hand []Card, card Card) ([]Card, bool) {
	for i, c := range hand {
		if c == card {
			return append(hand[:i:i], hand[i+1:]...), true
		}
	}
	return hand, false
}

// ContainsCard reports whether hand holds the given card.
func ContainsCard(hand []Card, card Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// HasSuit reports whether hand holds at least one card of the given suit.
func HasSuit(hand []Card, suit Suit) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}
