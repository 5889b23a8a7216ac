package nakama

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/InnerAnythings/hearts-server/internal/config"
	"github.com/InnerAnythings/hearts-server/internal/domain"
	"github.com/InnerAnythings/hearts-server/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

func TestMain(m *testing.M) {
	// Short display delays keep the tick-driven tests fast.
	path := filepath.Join(os.TempDir(), "hearts_game_config_test.json")
	cfg := []byte(`{"end_score":100,"trick_delay_seconds":1,"round_delay_seconds":1,"winner_reward_gold":250,"welcome_bonus_gold":500}`)
	if err := os.WriteFile(path, cfg, 0o600); err != nil {
		panic(err)
	}
	if err := config.LoadGameConfig(path); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	opCodes        []int64
	lastOpCode     int64
	lastData       []byte
	lastLabel      string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	md.opCodes = append(md.opCodes, opCode)
	md.lastOpCode = opCode
	md.lastData = append([]byte(nil), data...)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) countOp(opCode int64) int {
	count := 0
	for _, op := range md.opCodes {
		if op == opCode {
			count++
		}
	}
	return count
}

// mockPresence is a connected user for dispatch targeting.
type mockPresence struct {
	userID   string
	username string
}

func (mp mockPresence) GetUserId() string                 { return mp.userID }
func (mp mockPresence) GetSessionId() string              { return "session-" + mp.userID }
func (mp mockPresence) GetNodeId() string                 { return "node-1" }
func (mp mockPresence) GetHidden() bool                   { return false }
func (mp mockPresence) GetPersistence() bool              { return true }
func (mp mockPresence) GetUsername() string               { return mp.username }
func (mp mockPresence) GetStatus() string                 { return "" }
func (mp mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonJoin }

// mockMatchData is a client message arriving at the match loop.
type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (md mockMatchData) GetOpCode() int64      { return md.opCode }
func (md mockMatchData) GetData() []byte       { return md.data }
func (md mockMatchData) GetReliable() bool     { return true }
func (md mockMatchData) GetReceiveTime() int64 { return 0 }

type mockEconomy struct {
	updates [][]ports.WalletUpdate
}

func (me *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (me *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	me.updates = append(me.updates, updates)
	return nil
}

func newTestMatch(t *testing.T, ctx context.Context) (*matchHandler, *MatchState) {
	t.Helper()
	handler := &matchHandler{}
	state, tickRate, label := handler.MatchInit(ctx, noopLogger{}, nil, nil, nil)
	if tickRate != 1 {
		t.Fatalf("Expected tick rate 1, got %d", tickRate)
	}
	if label == "" {
		t.Fatal("Expected a non-empty initial label")
	}
	matchState, ok := state.(*MatchState)
	if !ok {
		t.Fatalf("Expected *MatchState, got %T", state)
	}
	return handler, matchState
}

func joinHumans(handler *matchHandler, state *MatchState, dispatcher *mockDispatcher, tick int64, count int) []mockPresence {
	presences := make([]runtime.Presence, 0, count)
	out := make([]mockPresence, 0, count)
	for i := 0; i < count; i++ {
		p := mockPresence{userID: fmt.Sprintf("user-%d", i+1), username: fmt.Sprintf("Player%d", i+1)}
		presences = append(presences, p)
		out = append(out, p)
	}
	handler.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, tick, state, presences)
	return out
}

func TestMatchInitLabel(t *testing.T) {
	_, state := newTestMatch(t, context.Background())

	labelBytes, err := json.Marshal(matchLabel{
		Game:  "hearts",
		Open:  state.GetOpenSeatsCount(),
		Phase: string(state.Game.Phase),
	})
	if err != nil {
		t.Fatalf("Failed to marshal label: %v", err)
	}
	want := `{"game":"hearts","open":4,"phase":"lobby"}`
	if string(labelBytes) != want {
		t.Fatalf("Label = %s, want %s", labelBytes, want)
	}
}

func TestMatchJoinSeatsPlayersAndAutoStarts(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	dispatcher := &mockDispatcher{}

	joinHumans(handler, state, dispatcher, 1, 4)

	if state.Game.Phase != domain.PhasePassing {
		t.Fatalf("Expected passing phase after four joins, got %q", state.Game.Phase)
	}
	if got := dispatcher.countOp(OpPlayerJoined); got != 4 {
		t.Fatalf("Expected 4 player_joined broadcasts, got %d", got)
	}
	if got := dispatcher.countOp(OpHandDealt); got != 4 {
		t.Fatalf("Expected 4 private hand_dealt messages, got %d", got)
	}
	if dispatcher.countOp(OpRoundStarted) != 1 || dispatcher.countOp(OpPassRequested) != 1 {
		t.Fatal("Expected round_started and pass_requested broadcasts")
	}
	if dispatcher.labelUpdates == 0 {
		t.Fatal("Expected a label update after joins")
	}
}

func TestMatchJoinAttemptRejectsAfterStart(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	dispatcher := &mockDispatcher{}
	joinHumans(handler, state, dispatcher, 1, 4)

	_, allowed, reason := handler.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, mockPresence{userID: "user-5"}, nil)
	if allowed {
		t.Fatal("Expected join attempt rejection once the game started")
	}
	if reason == "" {
		t.Fatal("Expected a rejection reason")
	}
}

func TestMatchLeaveMidGameAbortsAndTerminatesWhenEmpty(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	dispatcher := &mockDispatcher{}
	humans := joinHumans(handler, state, dispatcher, 1, 4)

	next := handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.Presence{humans[0]})
	if next == nil {
		t.Fatal("Expected match to stay alive with humans connected")
	}
	if state.Game.Phase != domain.PhaseGameOver {
		t.Fatalf("Expected aborted game, got phase %q", state.Game.Phase)
	}
	if dispatcher.countOp(OpGameAborted) != 1 {
		t.Fatal("Expected a game_aborted broadcast")
	}

	rest := []runtime.Presence{humans[1], humans[2], humans[3]}
	next = handler.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state, rest)
	if next != nil {
		t.Fatal("Expected match termination once all humans left")
	}
}

func TestSendErrorTargetsSender(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	dispatcher := &mockDispatcher{}
	joinHumans(handler, state, dispatcher, 1, 4)

	// Playing a card during the pass phase is a protocol error.
	payload, _ := json.Marshal(map[string]interface{}{"card": domain.TwoOfClubs})
	msg := mockMatchData{
		mockPresence: mockPresence{userID: "user-1", username: "Player1"},
		opCode:       OpPlayCard,
		data:         payload,
	}
	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, []runtime.MatchData{msg})

	if dispatcher.countOp(OpGameError) != 1 {
		t.Fatalf("Expected 1 game_error message, got %d", dispatcher.countOp(OpGameError))
	}
}

// playRound drives the match loop tick by tick, submitting passes and legal
// plays for every human seat, until the predicate is satisfied.
func playRound(t *testing.T, handler *matchHandler, state *MatchState, dispatcher *mockDispatcher, startTick int64, done func() bool) int64 {
	t.Helper()
	tick := startTick
	for ; tick < startTick+5000; tick++ {
		var messages []runtime.MatchData
		g := state.Game

		switch g.Phase {
		case domain.PhasePassing:
			for _, uid := range g.Seats {
				p := g.Players[uid]
				if p.PassSelection != nil {
					continue
				}
				payload, _ := json.Marshal(map[string]interface{}{"cards": p.Hand[:domain.PassCount]})
				messages = append(messages, mockMatchData{
					mockPresence: mockPresence{userID: uid},
					opCode:       OpSubmitPass,
					data:         payload,
				})
			}
		case domain.PhasePlaying:
			uid := g.Seats[g.CurrentTurn]
			p := g.Players[uid]
			legal := domain.LegalMoves(p.Hand, g.Trick, g.HeartsBroken, g.FirstTrick())
			payload, _ := json.Marshal(map[string]interface{}{"card": legal[0]})
			messages = append(messages, mockMatchData{
				mockPresence: mockPresence{userID: uid},
				opCode:       OpPlayCard,
				data:         payload,
			})
		}

		handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, tick, state, messages)
		if done() {
			return tick
		}
	}
	t.Fatal("Game did not reach the expected state in time")
	return tick
}

func TestMatchLoopPacesTrickAndRoundTransitions(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	dispatcher := &mockDispatcher{}
	joinHumans(handler, state, dispatcher, 1, 4)

	firstTrickTick := playRound(t, handler, state, dispatcher, 2, func() bool {
		return state.Game.TricksPlayed >= 1
	})
	if state.Game.Phase != domain.PhaseTrickComplete {
		t.Fatalf("Expected trick_complete pause, got %q", state.Game.Phase)
	}
	if state.PendingAdvance != advanceNextTrick {
		t.Fatalf("Expected scheduled next trick, got %q", state.PendingAdvance)
	}
	if state.AdvanceAtTick != firstTrickTick+int64(state.TrickDelay) {
		t.Fatalf("Expected advance at tick %d, got %d", firstTrickTick+int64(state.TrickDelay), state.AdvanceAtTick)
	}

	// A play sent during the pause must be rejected without mutating state.
	errorsBefore := dispatcher.countOp(OpGameError)
	tricksBefore := state.Game.TricksPlayed
	sender := state.Game.Seats[state.Game.LastTrick.Plays[0].Seat]
	payload, _ := json.Marshal(map[string]interface{}{"card": state.Game.Players[sender].Hand[0]})
	handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, firstTrickTick+1, state, []runtime.MatchData{mockMatchData{
		mockPresence: mockPresence{userID: sender},
		opCode:       OpPlayCard,
		data:         payload,
	}})
	if dispatcher.countOp(OpGameError) != errorsBefore+1 {
		t.Fatal("Expected rejection of play during trick pause")
	}
	if state.Game.TricksPlayed != tricksBefore {
		t.Fatal("Pause rejection must not mutate the game")
	}

	playRound(t, handler, state, dispatcher, firstTrickTick+2, func() bool {
		return state.Game.Round >= 2
	})
	if dispatcher.countOp(OpRoundScored) != 1 {
		t.Fatalf("Expected 1 round_scored broadcast, got %d", dispatcher.countOp(OpRoundScored))
	}
	if dispatcher.countOp(OpTrickResolved) < 13 {
		t.Fatalf("Expected at least 13 trick_resolved broadcasts, got %d", dispatcher.countOp(OpTrickResolved))
	}
	if state.Game.Direction != domain.PassRight {
		t.Fatalf("Expected round 2 to pass right, got %q", state.Game.Direction)
	}
}

func TestProcessBotsFillsLobbyAndPlays(t *testing.T) {
	env := map[string]string{
		"hearts_bot_auto_fill_delay_sec": "2",
		"hearts_bot_min_delay_sec":       "1",
		"hearts_bot_max_delay_sec":       "1",
	}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)

	handler, state := newTestMatch(t, ctx)
	if !state.BotsEnabled {
		t.Fatal("Expected bots enabled via environment")
	}
	dispatcher := &mockDispatcher{}
	joinHumans(handler, state, dispatcher, 1, 1)

	for tick := int64(2); tick <= 6; tick++ {
		handler.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, tick, state, nil)
	}

	if state.GetOpenSeatsCount() != 0 {
		t.Fatalf("Expected auto-filled seats, %d still open", state.GetOpenSeatsCount())
	}
	if len(state.Bots) != 3 {
		t.Fatalf("Expected 3 bot agents, got %d", len(state.Bots))
	}
	if state.Game.Phase == domain.PhaseLobby {
		t.Fatal("Expected game to start after auto-fill")
	}

	playRound(t, handler, state, dispatcher, 7, func() bool {
		return state.Game.TricksPlayed >= 1
	})
}

func TestGrantWinnerRewardsSkipsBotsAndPaysOnce(t *testing.T) {
	handler, state := newTestMatch(t, context.Background())
	economy := &mockEconomy{}
	state.Economy = economy
	dispatcher := &mockDispatcher{}
	joinHumans(handler, state, dispatcher, 1, 4)

	// Force a finished game with a known winner.
	playRound(t, handler, state, dispatcher, 2, func() bool {
		return state.Game.Phase == domain.PhaseGameOver || state.Game.Round > 30
	})
	if state.Game.Phase != domain.PhaseGameOver {
		t.Fatalf("Expected game over, got phase %q round %d", state.Game.Phase, state.Game.Round)
	}
	if dispatcher.countOp(OpGameOver) != 1 {
		t.Fatalf("Expected 1 game_over broadcast, got %d", dispatcher.countOp(OpGameOver))
	}

	if len(economy.updates) != 1 {
		t.Fatalf("Expected 1 reward batch, got %d", len(economy.updates))
	}
	winners := state.Game.Winners()
	if len(economy.updates[0]) != len(winners) {
		t.Fatalf("Expected %d reward updates, got %d", len(winners), len(economy.updates[0]))
	}
	for _, update := range economy.updates[0] {
		if update.Amount != 250 {
			t.Fatalf("Expected reward amount 250, got %d", update.Amount)
		}
		if update.Metadata["reason"] != "winner_reward" {
			t.Fatalf("Unexpected reward metadata: %v", update.Metadata)
		}
	}
	if !state.RewardsGranted {
		t.Fatal("Expected rewards to be marked granted")
	}

	handler.grantWinnerRewards(context.Background(), state, noopLogger{})
	if len(economy.updates) != 1 {
		t.Fatal("Rewards must only be paid once per match")
	}
}
