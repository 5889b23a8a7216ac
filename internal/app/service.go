package app

import (
	"errors"
	"math/rand"
	"time"

	"github.com/InnerAnythings/hearts-server/internal/domain"
)

// Service contains the Hearts use-cases operating on domain state. Each
// command validates, mutates the game, and returns the events to dispatch.
// Callers serialize invocations per game; the match loop is that serializer.
type Service struct {
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

// Protocol rejections: command issued in the wrong phase or out of turn.
// No state is mutated when these are returned.
var (
	ErrNotPassing     = errors.New("no pass selection is being collected")
	ErrNotPlaying     = errors.New("the game is not in the play phase")
	ErrTrickResolving = errors.New("wait for the current trick to resolve")
	ErrGameFinished   = errors.New("the game is over")
)

// Join seats a participant and, when the fourth seat fills, auto-starts
// round one.
func (s *Service) Join(g *domain.Game, userID, displayName string) ([]Event, error) {
	p, err := g.AddPlayer(userID, displayName)
	if err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventPlayerJoined,
		Payload: PlayerJoinedPayload{
			UserID:      p.UserID,
			Seat:        p.Seat,
			DisplayName: p.DisplayName,
		},
	}}

	if g.Full() {
		startEvents, err := s.StartRound(g)
		if err != nil {
			return nil, err
		}
		events = append(events, startEvents...)
	}
	return events, nil
}

// Leave removes a participant. In the lobby the seat is simply freed; once
// the game has started a leave force-ends the whole session.
func (s *Service) Leave(g *domain.Game, userID string) ([]Event, error) {
	p, err := g.PlayerByID(userID)
	if err != nil {
		return nil, err
	}

	if g.Phase == domain.PhaseLobby {
		if err := g.RemovePlayer(userID); err != nil {
			return nil, err
		}
		return []Event{{
			Kind:    EventPlayerLeft,
			Payload: PlayerLeftPayload{UserID: userID, Seat: p.Seat},
		}}, nil
	}

	if g.Phase == domain.PhaseGameOver {
		return nil, nil
	}

	g.Abort()
	return []Event{{
		Kind:    EventGameAborted,
		Payload: GameAbortedPayload{UserID: userID, Reason: "player left mid-game"},
	}}, nil
}

// StartRound shuffles, deals, and opens the round: passing when the round's
// direction calls for it, otherwise straight to the first trick.
func (s *Service) StartRound(g *domain.Game) ([]Event, error) {
	deck := domain.ShuffleDeck(s.rng, domain.NewDeck())
	if err := g.StartRound(deck); err != nil {
		return nil, err
	}

	events := []Event{{
		Kind:    EventRoundStarted,
		Payload: RoundStartedPayload{Round: g.Round, Direction: g.Direction},
	}}
	for _, uid := range g.Seats {
		p := g.Players[uid]
		events = append(events, Event{
			Kind:       EventHandDealt,
			Payload:    HandDealtPayload{UserID: uid, Hand: p.Hand},
			Recipients: []string{uid},
		})
	}

	if g.Phase == domain.PhasePassing {
		events = append(events, Event{
			Kind:    EventPassRequested,
			Payload: PassRequestedPayload{Direction: g.Direction},
		})
	} else {
		events = append(events, s.yourTurnEvent(g))
	}
	return events, nil
}

// SubmitPass records one seat's three-card selection. When the fourth
// selection arrives the pass executes atomically and play begins.
func (s *Service) SubmitPass(g *domain.Game, userID string, cards []domain.Card) ([]Event, error) {
	if g.Phase != domain.PhasePassing {
		if g.Phase == domain.PhaseGameOver {
			return nil, ErrGameFinished
		}
		return nil, ErrNotPassing
	}
	if err := g.SubmitPassSelection(userID, cards); err != nil {
		return nil, err
	}
	if !g.AllSelectionsIn() {
		return nil, nil
	}

	// Record who is about to receive what before the selections are cleared.
	received := make(map[string][]domain.Card, domain.SeatCount)
	for seat, uid := range g.Seats {
		target := g.Seats[g.Direction.TargetSeat(seat)]
		received[target] = append([]domain.Card(nil), g.Players[uid].PassSelection...)
	}

	if err := g.FinishPassing(); err != nil {
		return nil, err
	}

	events := make([]Event, 0, domain.SeatCount+1)
	for _, uid := range g.Seats {
		events = append(events, Event{
			Kind: EventCardsPassed,
			Payload: CardsPassedPayload{
				UserID:   uid,
				Received: received[uid],
				Hand:     g.Players[uid].Hand,
			},
			Recipients: []string{uid},
		})
	}
	events = append(events, s.yourTurnEvent(g))
	return events, nil
}

// PlayCard validates and applies one play by the given participant. A
// completed trick is resolved immediately; the caller paces the transition
// to the next trick (AdvanceTrick) or to scoring (ScoreRound).
func (s *Service) PlayCard(g *domain.Game, userID string, card domain.Card) ([]Event, error) {
	switch g.Phase {
	case domain.PhasePlaying:
	case domain.PhaseTrickComplete, domain.PhaseRoundScoring:
		return nil, ErrTrickResolving
	case domain.PhaseGameOver:
		return nil, ErrGameFinished
	default:
		return nil, ErrNotPlaying
	}

	p, err := g.PlayerByID(userID)
	if err != nil {
		return nil, err
	}
	if p.Seat != g.CurrentTurn {
		return nil, domain.ErrNotYourTurn
	}
	if err := domain.IsLegalPlay(p.Hand, card, g.Trick, g.HeartsBroken, g.FirstTrick()); err != nil {
		return nil, err
	}

	complete, err := g.ApplyPlay(p.Seat, card)
	if err != nil {
		return nil, err
	}

	nextTurn := g.CurrentTurn
	if complete {
		nextTurn = -1
	}
	events := []Event{{
		Kind: EventCardPlayed,
		Payload: CardPlayedPayload{
			Seat:          p.Seat,
			Card:          card,
			NextTurnSeat:  nextTurn,
			TrickComplete: complete,
			HeartsBroken:  g.HeartsBroken,
		},
	}}

	if !complete {
		return append(events, s.yourTurnEvent(g)), nil
	}

	res, roundOver, err := g.CompleteTrick()
	if err != nil {
		return nil, err
	}
	events = append(events, Event{
		Kind: EventTrickResolved,
		Payload: TrickResolvedPayload{
			WinnerSeat:  res.WinnerSeat,
			WinningCard: res.WinningCard,
			Points:      res.Points,
			Plays:       g.LastTrick.Plays,
			RoundOver:   roundOver,
		},
	})
	return events, nil
}

// AdvanceTrick opens the next trick after the display delay, led by the
// previous winner.
func (s *Service) AdvanceTrick(g *domain.Game) ([]Event, error) {
	if g.Phase != domain.PhaseTrickComplete {
		return nil, ErrNotPlaying
	}
	g.StartNextTrick()
	return []Event{s.yourTurnEvent(g)}, nil
}

// ScoreRound tallies the finished round, applying the shoot-the-moon
// inversion, and ends the game when a total reaches the end score.
func (s *Service) ScoreRound(g *domain.Game) ([]Event, error) {
	if g.Phase != domain.PhaseRoundScoring {
		return nil, ErrNotPlaying
	}
	summary, err := g.ScoreRound()
	if err != nil {
		return nil, err
	}

	events := []Event{{
		Kind: EventRoundScored,
		Payload: RoundScoredPayload{
			Round:    summary.Round,
			Scores:   summary.Scores,
			MoonSeat: summary.MoonSeat,
		},
	}}

	if summary.GameOver {
		events = append(events, Event{
			Kind: EventGameOver,
			Payload: GameOverPayload{
				WinnerSeats: g.Winners(),
				Scores:      summary.Scores,
			},
		})
	}
	return events, nil
}

// yourTurnEvent builds the private turn notice for the current seat,
// including its enumerated legal moves.
func (s *Service) yourTurnEvent(g *domain.Game) Event {
	uid := g.Seats[g.CurrentTurn]
	p := g.Players[uid]
	return Event{
		Kind: EventYourTurn,
		Payload: YourTurnPayload{
			Seat:       p.Seat,
			LegalMoves: domain.LegalMoves(p.Hand, g.Trick, g.HeartsBroken, g.FirstTrick()),
			Trick:      g.Trick.Plays,
		},
		Recipients: []string{uid},
	}
}
