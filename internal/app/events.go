package app

import "github.com/InnerAnythings/hearts-server/internal/domain"

// EventKind identifies emitted game events for dispatch by the port layer.
type EventKind string

const (
	EventPlayerJoined  EventKind = "player_joined"
	EventPlayerLeft    EventKind = "player_left"
	EventRoundStarted  EventKind = "round_started"
	EventHandDealt     EventKind = "hand_dealt"
	EventPassRequested EventKind = "pass_requested"
	EventCardsPassed   EventKind = "cards_passed"
	EventYourTurn      EventKind = "your_turn"
	EventCardPlayed    EventKind = "card_played"
	EventTrickResolved EventKind = "trick_resolved"
	EventRoundScored   EventKind = "round_scored"
	EventGameOver      EventKind = "game_over"
	EventGameAborted   EventKind = "game_aborted"
)

// Event is a game event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type PlayerJoinedPayload struct {
	UserID      string `json:"user_id"`
	Seat        int    `json:"seat"`
	DisplayName string `json:"display_name"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
	Seat   int    `json:"seat"`
}

type RoundStartedPayload struct {
	Round     int                  `json:"round"`
	Direction domain.PassDirection `json:"direction"`
}

type HandDealtPayload struct {
	UserID string        `json:"user_id"`
	Hand   []domain.Card `json:"hand"`
}

type PassRequestedPayload struct {
	Direction domain.PassDirection `json:"direction"`
}

// CardsPassedPayload is delivered privately to each seat after the pass
// executes: the three cards it received and its merged, re-sorted hand.
type CardsPassedPayload struct {
	UserID   string        `json:"user_id"`
	Received []domain.Card `json:"received"`
	Hand     []domain.Card `json:"hand"`
}

// YourTurnPayload is sent privately to the seat whose turn it is, carrying
// the enumerated legal moves.
type YourTurnPayload struct {
	Seat       int           `json:"seat"`
	LegalMoves []domain.Card `json:"legal_moves"`
	Trick      []domain.Play `json:"trick"`
}

type CardPlayedPayload struct {
	Seat          int         `json:"seat"`
	Card          domain.Card `json:"card"`
	NextTurnSeat  int         `json:"next_turn_seat"` // -1 while the trick resolves
	TrickComplete bool        `json:"trick_complete"`
	HeartsBroken  bool        `json:"hearts_broken"`
}

type TrickResolvedPayload struct {
	WinnerSeat  int           `json:"winner_seat"`
	WinningCard domain.Card   `json:"winning_card"`
	Points      int           `json:"points"`
	Plays       []domain.Play `json:"plays"`
	RoundOver   bool          `json:"round_over"`
}

// RoundScoredPayload mirrors the domain round summary.
type RoundScoredPayload struct {
	Round    int                `json:"round"`
	Scores   []domain.SeatScore `json:"scores"`
	MoonSeat int                `json:"moon_seat"` // -1 when nobody shot the moon
}

type GameOverPayload struct {
	WinnerSeats []int              `json:"winner_seats"`
	Scores      []domain.SeatScore `json:"scores"`
}

// GameAbortedPayload reports a forced end, e.g. a mid-game disconnect.
type GameAbortedPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}
