package bot

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/InnerAnythings/hearts-server/internal/domain"
)

// Agent is an autonomous seat occupant. It owns its brain and rng; the match
// loop decides when it acts.
type Agent struct {
	UserID string
	brain  Brain
}

// NewAgent builds an agent for a bot user id, picking the strategy the bot's
// identity configures. rng may be nil to use a time-seeded default.
func NewAgent(userID string, rng *rand.Rand) (*Agent, error) {
	if !IsBot(userID) {
		return nil, fmt.Errorf("not a bot user id: %s", userID)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Agent{
		UserID: userID,
		brain:  newBrain(botStrategyMap[userID], rng),
	}, nil
}

// SelectPass chooses the agent's three-card pass for the current round.
func (a *Agent) SelectPass(g *domain.Game) ([]domain.Card, error) {
	p, err := g.PlayerByID(a.UserID)
	if err != nil {
		return nil, err
	}
	selection := a.brain.SelectPass(p.Hand)
	if err := domain.ValidateSelection(p.Hand, selection); err != nil {
		return nil, fmt.Errorf("bot %s produced invalid pass: %w", a.UserID, err)
	}
	return selection, nil
}

// SelectPlay chooses the agent's card for the current trick.
func (a *Agent) SelectPlay(g *domain.Game) (domain.Card, error) {
	p, err := g.PlayerByID(a.UserID)
	if err != nil {
		return domain.Card{}, err
	}
	legal := domain.LegalMoves(p.Hand, g.Trick, g.HeartsBroken, g.FirstTrick())
	if len(legal) == 0 {
		return domain.Card{}, fmt.Errorf("bot %s has no cards to play", a.UserID)
	}
	return a.brain.SelectPlay(p.Hand, legal, g.Trick), nil
}
