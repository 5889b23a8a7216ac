package bot

import (
	"github.com/InnerAnythings/hearts-server/internal/domain"
)

// Brain decides what a bot does with the choices the rules allow it.
// Implementations must be deterministic given the same rng state.
type Brain interface {
	// SelectPass chooses exactly three cards from hand to pass.
	SelectPass(hand []domain.Card) []domain.Card

	// SelectPlay chooses one card from the legal moves. legal is never
	// empty and every element is present in hand.
	SelectPlay(hand []domain.Card, legal []domain.Card, trick *domain.Trick) domain.Card
}
