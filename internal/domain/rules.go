package domain

import "errors"

// Rejection reasons returned by IsLegalPlay. These are user-facing: the port
// layer forwards them verbatim to the offending player.
var (
	ErrNotInHand          = errors.New("card is not in your hand")
	ErrMustOpenTwoOfClubs = errors.New("the first trick must be opened with the two of clubs")
	ErrNoPointsFirstTrick = errors.New("point cards cannot be played on the first trick")
	ErrMustFollowSuit     = errors.New("you must follow the lead suit")
	ErrHeartsNotBroken    = errors.New("hearts have not been broken yet")
)

// IsLegalPlay decides whether playing card from hand into the current trick
// is legal. A nil return means the play is allowed; otherwise the returned
// error names the violated rule. Rules are applied in precedence order:
//
//  1. the card must be in hand;
//  2. the very first play of a round must be the two of clubs;
//  3. no point card on the first trick, unless the hand holds nothing else;
//  4. the lead suit must be followed when the hand can;
//  5. hearts may not be led before they are broken, unless the hand is all
//     hearts.
func IsLegalPlay(hand []Card, card Card, trick *Trick, heartsBroken, firstTrick bool) error {
	if !ContainsCard(hand, card) {
		return ErrNotInHand
	}

	if firstTrick {
		if !trick.HasLead && card != TwoOfClubs {
			return ErrMustOpenTwoOfClubs
		}
		if card.Points() > 0 && !allPointCards(hand) {
			return ErrNoPointsFirstTrick
		}
	}

	if trick.HasLead {
		if card.Suit != trick.LeadSuit && HasSuit(hand, trick.LeadSuit) {
			return ErrMustFollowSuit
		}
		return nil
	}

	if card.Suit == SuitHearts && !heartsBroken && !allHearts(hand) {
		return ErrHeartsNotBroken
	}
	return nil
}

// LegalMoves enumerates every card in hand that IsLegalPlay would accept.
// It never returns an empty set for a non-empty hand: if rule interaction
// would filter out everything, the whole hand is returned as a safety net and
// the turn owner may play anything.
func LegalMoves(hand []Card, trick *Trick, heartsBroken, firstTrick bool) []Card {
	if len(hand) == 0 {
		return nil
	}

	// Forced-exception conditions derived once per hand, not per card.
	onlyPoints := allPointCards(hand)
	onlyHearts := allHearts(hand)
	mustFollow := trick.HasLead && HasSuit(hand, trick.LeadSuit)

	moves := make([]Card, 0, len(hand))
	for _, c := range hand {
		if firstTrick {
			if !trick.HasLead && c != TwoOfClubs {
				continue
			}
			if c.Points() > 0 && !onlyPoints {
				continue
			}
		}
		if mustFollow {
			if c.Suit != trick.LeadSuit {
				continue
			}
		} else if !trick.HasLead && c.Suit == SuitHearts && !heartsBroken && !onlyHearts {
			continue
		}
		moves = append(moves, c)
	}

	if len(moves) == 0 {
		// Rule interactions should never empty the set under a correct deal,
		// but a stuck player is worse than a relaxed rule.
		return append([]Card(nil), hand...)
	}
	return moves
}

func allPointCards(hand []Card) bool {
	for _, c := range hand {
		if c.Points() == 0 {
			return false
		}
	}
	return len(hand) > 0
}

func allHearts(hand []Card) bool {
	for _, c := range hand {
		if c.Suit != SuitHearts {
			return false
		}
	}
	return len(hand) > 0
}
