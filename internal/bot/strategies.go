package bot

import (
	"math/rand"
	"sort"

	"github.com/InnerAnythings/hearts-server/internal/domain"
)

// Strategy names accepted in bot identity files.
const (
	StrategyRandom = "random"
	StrategyDucker = "ducker"
)

// randomBrain picks uniformly among the legal options. Useful as a floor
// opponent and for exercising the full rule surface in simulations.
type randomBrain struct {
	rng *rand.Rand
}

func (b *randomBrain) SelectPass(hand []domain.Card) []domain.Card {
	picks := b.rng.Perm(len(hand))[:domain.PassCount]
	selection := make([]domain.Card, 0, domain.PassCount)
	for _, i := range picks {
		selection = append(selection, hand[i])
	}
	return selection
}

func (b *randomBrain) SelectPlay(hand []domain.Card, legal []domain.Card, trick *domain.Trick) domain.Card {
	return legal[b.rng.Intn(len(legal))]
}

// duckerBrain avoids taking points: it passes away its most dangerous cards
// and plays the highest card that still loses the trick.
type duckerBrain struct {
	rng *rand.Rand
}

// passDanger ranks how badly a card wants to leave the hand before play
// starts. High spades are the classic liability, then high cards generally.
func passDanger(c domain.Card) int {
	danger := int(c.Rank)
	switch {
	case c == domain.QueenOfSpades:
		danger += 100
	case c.Suit == domain.SuitSpades && c.Rank > domain.RankQueen:
		danger += 50
	case c.Suit == domain.SuitHearts:
		danger += 10
	}
	return danger
}

func (b *duckerBrain) SelectPass(hand []domain.Card) []domain.Card {
	ranked := append([]domain.Card(nil), hand...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return passDanger(ranked[i]) > passDanger(ranked[j])
	})
	return append([]domain.Card(nil), ranked[:domain.PassCount]...)
}

func (b *duckerBrain) SelectPlay(hand []domain.Card, legal []domain.Card, trick *domain.Trick) domain.Card {
	if trick == nil || !trick.HasLead {
		// Lead the lowest card to keep control away from this seat.
		best := legal[0]
		for _, c := range legal[1:] {
			if c.Rank < best.Rank {
				best = c
			}
		}
		return best
	}

	// Highest card currently winning the trick.
	winning := domain.RankTwo - 1
	for _, play := range trick.Plays {
		if play.Card.Suit == trick.LeadSuit && play.Card.Rank > winning {
			winning = play.Card.Rank
		}
	}

	var duck, lowest domain.Card
	haveDuck, haveFollow := false, false
	for _, c := range legal {
		if c.Suit != trick.LeadSuit {
			continue
		}
		if !haveFollow || c.Rank < lowest.Rank {
			lowest, haveFollow = c, true
		}
		if c.Rank < winning && (!haveDuck || c.Rank > duck.Rank) {
			duck, haveDuck = c, true
		}
	}
	if haveDuck {
		return duck
	}
	if haveFollow {
		return lowest
	}

	// Void in the lead suit: dump the most dangerous card.
	best := legal[0]
	for _, c := range legal[1:] {
		if passDanger(c) > passDanger(best) {
			best = c
		}
	}
	return best
}

// newBrain builds the named strategy, defaulting to random for unknown names.
func newBrain(strategy string, rng *rand.Rand) Brain {
	switch strategy {
	case StrategyDucker:
		return &duckerBrain{rng: rng}
	default:
		return &randomBrain{rng: rng}
	}
}
