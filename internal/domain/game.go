package domain

import (
	"errors"
	"fmt"
)

// SeatCount is the fixed table size. Hearts here is four-player only.
const SeatCount = 4

// DefaultEndScore ends the game once any seat reaches it.
const DefaultEndScore = 100

// Phase represents the lifecycle stage of a Hearts session.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join.
	PhaseLobby Phase = "lobby"
	// PhasePassing collects each seat's three-card pass selection.
	PhasePassing Phase = "passing"
	// PhasePlaying is the trick-taking state.
	PhasePlaying Phase = "playing"
	// PhaseTrickComplete holds a resolved trick for display pacing.
	PhaseTrickComplete Phase = "trick_complete"
	// PhaseRoundScoring holds the round score tally for display pacing.
	PhaseRoundScoring Phase = "round_scoring"
	// PhaseGameOver is the terminal state.
	PhaseGameOver Phase = "game_over"
)

// Player holds the per-seat state for a participant.
type Player struct {
	UserID      string
	DisplayName string
	Seat        int // 0..3, assigned at join time, never changes

	Hand       []Card
	RoundScore int
	TotalScore int

	// Passing-phase staging. Both are nil outside PhasePassing.
	PassSelection []Card
	PassIncoming  []Card
}

// Game is the authoritative state for one Hearts session. It is the sole
// owner and mutator of all seats, the current trick, and round bookkeeping.
// Callers serialize access; Game itself is not safe for concurrent use.
type Game struct {
	Phase   Phase
	Players map[string]*Player
	Seats   [SeatCount]string // seat index -> userID, "" when empty

	Round     int // 1-based, 0 before the first deal
	Direction PassDirection

	HeartsBroken bool
	TricksPlayed int // explicit per-round counter; trick 0 is the first trick
	CurrentTurn  int // seat index whose turn it is

	Trick *Trick

	// Resolved-trick carryover between PhaseTrickComplete and the next
	// trick, kept so late observers see what was just won.
	LastTrick  *Trick
	LastResult TrickResult

	EndScore int
}

var (
	ErrMatchFull     = errors.New("match is full")
	ErrMatchStarted  = errors.New("match has already started")
	ErrAlreadyJoined = errors.New("player already joined")
	ErrUnknownPlayer = errors.New("player not found")
	ErrNotYourTurn   = errors.New("not your turn")
)

// NewGame returns an empty lobby-phase game. endScore <= 0 selects the
// standard 100-point game end.
func NewGame(endScore int) *Game {
	if endScore <= 0 {
		endScore = DefaultEndScore
	}
	return &Game{
		Phase:    PhaseLobby,
		Players:  make(map[string]*Player),
		EndScore: endScore,
		Trick:    NewTrick(),
	}
}

// AddPlayer seats a new participant in the lowest free seat. Seating order is
// join order and fixes the turn order for the whole session.
func (g *Game) AddPlayer(userID, displayName string) (*Player, error) {
	if g.Phase != PhaseLobby {
		return nil, ErrMatchStarted
	}
	if _, ok := g.Players[userID]; ok {
		return nil, ErrAlreadyJoined
	}
	seat := -1
	for i, uid := range g.Seats {
		if uid == "" {
			seat = i
			break
		}
	}
	if seat < 0 {
		return nil, ErrMatchFull
	}

	p := &Player{UserID: userID, DisplayName: displayName, Seat: seat}
	g.Seats[seat] = userID
	g.Players[userID] = p
	return p, nil
}

// RemovePlayer frees the given player's seat. Only valid in the lobby; once
// the game has started a leave force-ends the session (the caller transitions
// to PhaseGameOver instead).
func (g *Game) RemovePlayer(userID string) error {
	p, ok := g.Players[userID]
	if !ok {
		return ErrUnknownPlayer
	}
	if g.Phase != PhaseLobby {
		return ErrMatchStarted
	}
	g.Seats[p.Seat] = ""
	delete(g.Players, userID)
	return nil
}

// Full reports whether all four seats are occupied.
func (g *Game) Full() bool {
	for _, uid := range g.Seats {
		if uid == "" {
			return false
		}
	}
	return true
}

// PlayerBySeat returns the player at the given seat index.
func (g *Game) PlayerBySeat(seat int) (*Player, error) {
	if seat < 0 || seat >= SeatCount || g.Seats[seat] == "" {
		return nil, ErrUnknownPlayer
	}
	return g.Players[g.Seats[seat]], nil
}

// PlayerByID returns the player for the given user id.
func (g *Game) PlayerByID(userID string) (*Player, error) {
	p, ok := g.Players[userID]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return p, nil
}

// seatedPlayers returns the four players indexed by seat. All seats must be
// occupied.
func (g *Game) seatedPlayers() (*[SeatCount]*Player, error) {
	var out [SeatCount]*Player
	for i, uid := range g.Seats {
		p, ok := g.Players[uid]
		if !ok {
			return nil, fmt.Errorf("seat %d is empty", i)
		}
		out[i] = p
	}
	return &out, nil
}

// FirstTrick reports whether the trick in progress is the round's first.
func (g *Game) FirstTrick() bool {
	return g.TricksPlayed == 0
}

// StartRound deals the provided shuffled deck and enters the passing phase,
// or goes straight to play on a hold round. The deck must be a full
// 52-card permutation; dealing is round-robin in seat order.
func (g *Game) StartRound(deck []Card) error {
	if len(deck) != 52 {
		return fmt.Errorf("start round: deck has %d cards, want 52", len(deck))
	}
	players, err := g.seatedPlayers()
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}

	g.Round++
	g.Direction = DirectionForRound(g.Round)
	g.HeartsBroken = false
	g.TricksPlayed = 0
	g.Trick = NewTrick()
	g.LastTrick = nil

	for seat, p := range players {
		p.Hand = make([]Card, 0, 13)
		p.RoundScore = 0
		p.PassSelection = nil
		p.PassIncoming = nil
		for i := seat; i < len(deck); i += SeatCount {
			p.Hand = append(p.Hand, deck[i])
		}
		SortHand(p.Hand)
	}

	if g.Direction == PassHold {
		return g.beginPlay()
	}
	g.Phase = PhasePassing
	return nil
}

// SubmitPassSelection records a seat's pending three-card pass. It does not
// redistribute; FinishPassing does that once all four selections are in.
func (g *Game) SubmitPassSelection(userID string, cards []Card) error {
	p, err := g.PlayerByID(userID)
	if err != nil {
		return err
	}
	if p.PassSelection != nil {
		return ErrAlreadySelected
	}
	if err := ValidateSelection(p.Hand, cards); err != nil {
		return err
	}
	p.PassSelection = append([]Card(nil), cards...)
	return nil
}

// AllSelectionsIn reports whether every seat has a pending pass selection.
func (g *Game) AllSelectionsIn() bool {
	for _, uid := range g.Seats {
		p, ok := g.Players[uid]
		if !ok || p.PassSelection == nil {
			return false
		}
	}
	return true
}

// FinishPassing redistributes all pending selections and begins play.
func (g *Game) FinishPassing() error {
	players, err := g.seatedPlayers()
	if err != nil {
		return err
	}
	if err := ExecutePass(players, g.Direction); err != nil {
		return err
	}
	return g.beginPlay()
}

// beginPlay locates the two of clubs and opens the first trick with its
// holder. A freshly dealt round must contain the card exactly once; not
// finding it means the deal itself is corrupt.
func (g *Game) beginPlay() error {
	leader := -1
	for seat, uid := range g.Seats {
		if ContainsCard(g.Players[uid].Hand, TwoOfClubs) {
			leader = seat
			break
		}
	}
	if leader < 0 {
		return fmt.Errorf("begin play: two of clubs not found in any hand")
	}
	g.CurrentTurn = leader
	g.Phase = PhasePlaying
	return nil
}

// ApplyPlay moves a validated card from the current seat's hand into the
// trick and advances the turn. It returns true when the play completed the
// trick, in which case the game enters PhaseTrickComplete and the caller
// resolves it via CompleteTrick. Legality must already be checked.
func (g *Game) ApplyPlay(seat int, card Card) (bool, error) {
	p, err := g.PlayerBySeat(seat)
	if err != nil {
		return false, err
	}
	hand, ok := RemoveCard(p.Hand, card)
	if !ok {
		return false, ErrNotInHand
	}
	p.Hand = hand
	g.Trick.Add(seat, card)

	if card.Suit == SuitHearts && !g.HeartsBroken {
		g.HeartsBroken = true
	}

	if g.Trick.Complete() {
		g.Phase = PhaseTrickComplete
		return true, nil
	}
	g.CurrentTurn = (seat + 1) % SeatCount
	return false, nil
}

// CompleteTrick resolves the completed trick, credits the winner's round
// score, and bumps the trick counter. It returns the result and whether the
// round is over (13 tricks played).
func (g *Game) CompleteTrick() (TrickResult, bool, error) {
	res, err := ResolveTrick(g.Trick)
	if err != nil {
		return TrickResult{}, false, err
	}
	winner, err := g.PlayerBySeat(res.WinnerSeat)
	if err != nil {
		return TrickResult{}, false, err
	}
	winner.RoundScore += res.Points

	g.LastTrick = g.Trick
	g.LastResult = res
	g.TricksPlayed++

	if g.TricksPlayed == 13 {
		g.Phase = PhaseRoundScoring
		return res, true, nil
	}
	return res, false, nil
}

// StartNextTrick opens a fresh trick led by the previous winner.
func (g *Game) StartNextTrick() {
	g.Trick = NewTrick()
	g.CurrentTurn = g.LastResult.WinnerSeat
	g.Phase = PhasePlaying
}

// SeatScore is one seat's line in a round summary.
type SeatScore struct {
	Seat       int    `json:"seat"`
	UserID     string `json:"user_id"`
	RoundScore int    `json:"round_score"`
	TotalScore int    `json:"total_score"`
}

// RoundSummary reports the scoring outcome of a finished round.
type RoundSummary struct {
	Round    int         `json:"round"`
	Scores   []SeatScore `json:"scores"`
	MoonSeat int         `json:"moon_seat"` // -1 unless a seat shot the moon
	GameOver bool        `json:"game_over"`
}

// ScoreRound applies the round scores to the totals, inverting them when a
// single seat took all 26 points ("shooting the moon": the shooter adds
// nothing, everyone else adds 26). It reports whether any total reached the
// end score.
func (g *Game) ScoreRound() (RoundSummary, error) {
	players, err := g.seatedPlayers()
	if err != nil {
		return RoundSummary{}, err
	}

	moonSeat := -1
	for seat, p := range players {
		if p.RoundScore == MaxRoundPoints {
			moonSeat = seat
			break
		}
	}

	summary := RoundSummary{Round: g.Round, MoonSeat: moonSeat}
	for seat, p := range players {
		if moonSeat >= 0 {
			if seat != moonSeat {
				p.TotalScore += MaxRoundPoints
			}
		} else {
			p.TotalScore += p.RoundScore
		}
		if p.TotalScore >= g.EndScore {
			summary.GameOver = true
		}
		summary.Scores = append(summary.Scores, SeatScore{
			Seat:       seat,
			UserID:     p.UserID,
			RoundScore: p.RoundScore,
			TotalScore: p.TotalScore,
		})
	}

	if summary.GameOver {
		g.Phase = PhaseGameOver
	}
	return summary, nil
}

// Winners returns the seat(s) holding the lowest total score. Meaningful
// once the game is over; ties share the win.
func (g *Game) Winners() []int {
	players, err := g.seatedPlayers()
	if err != nil {
		return nil
	}
	best := players[0].TotalScore
	for _, p := range players[1:] {
		if p.TotalScore < best {
			best = p.TotalScore
		}
	}
	var winners []int
	for seat, p := range players {
		if p.TotalScore == best {
			winners = append(winners, seat)
		}
	}
	return winners
}

// Abort force-ends the session, used when a seated player disconnects
// mid-game. Graceful 3-player continuation is deliberately unsupported.
func (g *Game) Abort() {
	g.Phase = PhaseGameOver
}
