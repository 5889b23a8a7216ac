package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"strconv"

	"github.com/InnerAnythings/hearts-server/internal/app"
	"github.com/InnerAnythings/hearts-server/internal/bot"
	"github.com/InnerAnythings/hearts-server/internal/config"
	"github.com/InnerAnythings/hearts-server/internal/domain"
	"github.com/InnerAnythings/hearts-server/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const (
	MatchLabelKey_OpenSeats = "open" // Key for the open seats in the match label
)

// Pending pacing steps. While one is scheduled, player commands that would
// race the transition are rejected by the app layer.
const (
	advanceNone       = ""
	advanceNextTrick  = "next_trick"
	advanceScoreRound = "score_round"
	advanceNextRound  = "next_round"
)

// matchLabel is the JSON document stored as the Nakama match label, queried
// by the quick-match RPC.
type matchLabel struct {
	Game  string `json:"game"`
	Open  int    `json:"open"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	Tick      int64                       `json:"tick"`
	Presences map[string]runtime.Presence `json:"-"` // Map UserId -> Presence for targeted messaging
	App       *app.Service                `json:"-"` // Hearts app service with game logic
	Game      *domain.Game                `json:"-"` // Authoritative game state, created at init

	// PendingAdvance and AdvanceAtTick pace the phase transitions that give
	// clients time to display a resolved trick or a round scoreboard.
	PendingAdvance string `json:"pending_advance"`
	AdvanceAtTick  int64  `json:"advance_at_tick"`

	TrickDelay int `json:"trick_delay"` // Seconds a resolved trick stays visible
	RoundDelay int `json:"round_delay"` // Seconds a round scoreboard stays visible

	BotsEnabled        bool                  `json:"bots_enabled"`
	BotMinDelay        int                   `json:"bot_min_delay"`
	BotMaxDelay        int                   `json:"bot_max_delay"`
	BotAutoFillDelay   int                   `json:"bot_auto_fill_delay"`
	BotWaitUntil       int64                 `json:"bot_wait_until"`       // Tick when the bot should act
	UnfilledLobbySince int64                 `json:"unfilled_lobby_since"` // Tick when a short-handed lobby started waiting
	NextBotIdentity    int                   `json:"next_bot_identity"`    // Roster cursor for auto-filled bots
	RewardsGranted     bool                  `json:"rewards_granted"`      // Winner rewards are paid at most once
	Bots               map[string]*bot.Agent `json:"-"`                    // Active bot agents by user id
	Economy            ports.EconomyPort     `json:"-"`                    // Interface to Nakama wallets
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Game.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetHumanPlayerCount() int {
	count := 0
	for _, seat := range ms.Game.Seats {
		if seat != "" && !bot.IsBot(seat) {
			count++
		}
	}
	return count
}

// hasReplaceableBot reports whether a lobby seat is held by a bot a joining
// human could take over.
func (ms *MatchState) hasReplaceableBot() bool {
	if ms.Game.Phase != domain.PhaseLobby {
		return false
	}
	for _, seat := range ms.Game.Seats {
		if bot.IsBot(seat) {
			return true
		}
	}
	return false
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	botMin, botMax := config.GetBotDelayBounds()
	state := &MatchState{
		Presences:        make(map[string]runtime.Presence),
		App:              app.NewService(nil),
		Game:             domain.NewGame(config.GetEndScore()),
		TrickDelay:       config.GetTrickDelaySeconds(),
		RoundDelay:       config.GetRoundDelaySeconds(),
		BotsEnabled:      config.GetBotAutoFillDelaySeconds() > 0,
		BotMinDelay:      botMin,
		BotMaxDelay:      botMax,
		BotAutoFillDelay: config.GetBotAutoFillDelaySeconds(),
		Bots:             make(map[string]*bot.Agent),
		Economy:          NewNakamaEconomyAdapter(nk),
	}

	// Environment variables override the config file where set.
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if val, ok := env["hearts_bots_enabled"]; ok {
		state.BotsEnabled = val == "true"
	}
	if val, ok := env["hearts_bot_min_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMinDelay = i
		}
	}
	if val, ok := env["hearts_bot_max_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotMaxDelay = i
		}
	}
	if val, ok := env["hearts_bot_auto_fill_delay_sec"]; ok {
		if i, err := strconv.Atoi(val); err == nil {
			state.BotAutoFillDelay = i
			state.BotsEnabled = i > 0
		}
	}
	if state.BotMaxDelay < state.BotMinDelay {
		state.BotMaxDelay = state.BotMinDelay
	}

	labelBytes, err := json.Marshal(matchLabel{
		Game:  "hearts",
		Open:  state.GetOpenSeatsCount(),
		Phase: string(state.Game.Phase),
	})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1 // Ticks once per second; all delays are whole seconds.
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Game.Phase != domain.PhaseLobby {
		return state, false, "Match already started"
	}
	if matchState.GetOpenSeatsCount() <= 0 && !matchState.hasReplaceableBot() {
		return state, false, "Match full"
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	matchState.Tick = tick

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p

		// A human joining a lobby padded with bots takes a bot's seat.
		if matchState.GetOpenSeatsCount() == 0 {
			evicted := false
			for _, seatUserId := range matchState.Game.Seats {
				if bot.IsBot(seatUserId) {
					logger.Info("MatchJoin: Replacing bot %s with human %s", seatUserId, p.GetUserId())
					if err := matchState.Game.RemovePlayer(seatUserId); err != nil {
						logger.Error("MatchJoin: Failed to remove bot %s: %v", seatUserId, err)
						break
					}
					delete(matchState.Bots, seatUserId)
					evicted = true
					break
				}
			}
			if !evicted {
				logger.Warn("MatchJoin: User %s joined but no seat was available.", p.GetUserId())
				continue
			}
		}

		events, err := matchState.App.Join(matchState.Game, p.GetUserId(), p.GetUsername())
		if err != nil {
			logger.Warn("MatchJoin: Failed to seat user %s: %v", p.GetUserId(), err)
			continue
		}
		for _, ev := range events {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match. A leave
// during an active round force-ends the game for everyone.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}
	matchState.Tick = tick

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())

		events, err := matchState.App.Leave(matchState.Game, p.GetUserId())
		if err != nil {
			logger.Warn("MatchLeave: Failed to process leave for %s: %v", p.GetUserId(), err)
			continue
		}
		for _, ev := range events {
			mh.broadcastEvent(ctx, matchState, dispatcher, logger, ev)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: Terminating match with no connected humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpSubmitPass:
			mh.handleSubmitPass(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handlePlayCard(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.processPacing(ctx, matchState, dispatcher, logger)

	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}

	mh.schedulePacing(matchState, logger)

	return matchState
}

// schedulePacing arms the display delay whenever the game sits in a phase
// that clients need time to render.
func (mh *matchHandler) schedulePacing(state *MatchState, logger runtime.Logger) {
	if state.PendingAdvance != advanceNone {
		return
	}

	switch state.Game.Phase {
	case domain.PhaseTrickComplete:
		state.PendingAdvance = advanceNextTrick
		state.AdvanceAtTick = state.Tick + int64(state.TrickDelay)
	case domain.PhaseRoundScoring:
		state.PendingAdvance = advanceScoreRound
		state.AdvanceAtTick = state.Tick + int64(state.TrickDelay)
	}
}

// processPacing executes a scheduled phase transition once its delay expires.
func (mh *matchHandler) processPacing(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.PendingAdvance == advanceNone || state.Tick < state.AdvanceAtTick {
		return
	}

	pending := state.PendingAdvance
	state.PendingAdvance = advanceNone
	state.AdvanceAtTick = 0

	var (
		events []app.Event
		err    error
	)
	switch pending {
	case advanceNextTrick:
		events, err = state.App.AdvanceTrick(state.Game)
	case advanceScoreRound:
		events, err = state.App.ScoreRound(state.Game)
		if err == nil {
			if state.Game.Phase == domain.PhaseGameOver {
				mh.grantWinnerRewards(ctx, state, logger)
			} else {
				state.PendingAdvance = advanceNextRound
				state.AdvanceAtTick = state.Tick + int64(state.RoundDelay)
			}
		}
	case advanceNextRound:
		events, err = state.App.StartRound(state.Game)
	}
	if err != nil {
		logger.Error("processPacing: Failed to advance (%s): %v", pending, err)
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
	mh.updateLabel(state, dispatcher, logger)
}

// grantWinnerRewards credits each human winner's wallet once per match.
func (mh *matchHandler) grantWinnerRewards(ctx context.Context, state *MatchState, logger runtime.Logger) {
	reward := config.GetWinnerRewardGold()
	if state.Economy == nil || reward <= 0 || state.RewardsGranted {
		return
	}
	state.RewardsGranted = true

	var updates []ports.WalletUpdate
	for _, seat := range state.Game.Winners() {
		userID := state.Game.Seats[seat]
		if bot.IsBot(userID) {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: userID,
			Amount: reward,
			Metadata: map[string]interface{}{
				"match_id": ctx.Value(runtime.RUNTIME_CTX_MATCH_ID),
				"reason":   "winner_reward",
			},
		})
	}
	if len(updates) == 0 {
		return
	}
	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to grant winner rewards: %v", err)
	}
}

func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	// 1. Auto-fill a short-handed lobby with bots after a grace period.
	if state.Game.Phase == domain.PhaseLobby {
		humanCount := state.GetHumanPlayerCount()
		if humanCount >= 1 && state.GetOpenSeatsCount() > 0 {
			if state.UnfilledLobbySince == 0 {
				state.UnfilledLobbySince = state.Tick
				logger.Debug("processBots: Short-handed lobby detected, starting auto-fill timer.")
			}

			if state.Tick-state.UnfilledLobbySince >= int64(state.BotAutoFillDelay) {
				state.UnfilledLobbySince = 0
				mh.fillLobbyWithBots(ctx, state, dispatcher, logger)
			}
		} else {
			state.UnfilledLobbySince = 0
		}
	}

	// 2. Submit passes for bots once the pass phase opens.
	if state.Game.Phase == domain.PhasePassing {
		if !mh.botActionDue(state, logger, "pass") {
			return
		}
		for _, userID := range state.Game.Seats {
			agent, ok := state.Bots[userID]
			if !ok {
				continue
			}
			p, err := state.Game.PlayerByID(userID)
			if err != nil || p.PassSelection != nil {
				continue
			}
			selection, err := agent.SelectPass(state.Game)
			if err != nil {
				logger.Error("processBots: Bot %s failed to select pass: %v", userID, err)
				continue
			}
			events, err := state.App.SubmitPass(state.Game, userID, selection)
			if err != nil {
				logger.Error("processBots: Bot %s failed to submit pass: %v", userID, err)
				continue
			}
			for _, ev := range events {
				mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
			}
			if state.Game.Phase != domain.PhasePassing {
				// The final selection executed the pass and opened play.
				break
			}
		}
		return
	}

	// 3. Play for the bot whose turn it is.
	if state.Game.Phase == domain.PhasePlaying {
		currentUserID := state.Game.Seats[state.Game.CurrentTurn]
		agent, isBotTurn := state.Bots[currentUserID]
		if !isBotTurn {
			state.BotWaitUntil = 0
			return
		}
		if !mh.botActionDue(state, logger, currentUserID) {
			return
		}

		card, err := agent.SelectPlay(state.Game)
		if err != nil {
			logger.Error("processBots: Bot %s failed to select play: %v", currentUserID, err)
			return
		}
		events, err := state.App.PlayCard(state.Game, currentUserID, card)
		if err != nil {
			logger.Error("processBots: Bot %s played illegal card %v: %v", currentUserID, card, err)
			return
		}
		for _, ev := range events {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
	}
}

// botActionDue arms and checks the shared bot thinking delay.
func (mh *matchHandler) botActionDue(state *MatchState, logger runtime.Logger, what string) bool {
	if state.BotWaitUntil == 0 {
		delay := state.BotMinDelay
		if state.BotMaxDelay > state.BotMinDelay {
			delay += rand.Intn(state.BotMaxDelay - state.BotMinDelay + 1)
		}
		state.BotWaitUntil = state.Tick + int64(delay)
		logger.Debug("processBots: Bot action (%s) due at tick %d (current %d)", what, state.BotWaitUntil, state.Tick)
		return false
	}
	if state.Tick < state.BotWaitUntil {
		return false
	}
	state.BotWaitUntil = 0
	return true
}

// fillLobbyWithBots seats agents in every open seat. Seating the fourth
// occupant auto-starts the game.
func (mh *matchHandler) fillLobbyWithBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for state.GetOpenSeatsCount() > 0 {
		identity := bot.GetBotIdentity(state.NextBotIdentity)
		state.NextBotIdentity++

		agent, err := bot.NewAgent(identity.UserID, nil)
		if err != nil {
			logger.Error("fillLobbyWithBots: Failed to create agent for %s: %v", identity.UserID, err)
			return
		}

		events, err := state.App.Join(state.Game, identity.UserID, identity.DisplayName)
		if err != nil {
			logger.Error("fillLobbyWithBots: Failed to seat bot %s: %v", identity.UserID, err)
			return
		}
		state.Bots[identity.UserID] = agent
		logger.Info("fillLobbyWithBots: Added bot %s (%s)", identity.DisplayName, identity.UserID)

		for _, ev := range events {
			mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
		}
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handleSubmitPass(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request struct {
		Cards []domain.Card `json:"cards"`
	}
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handleSubmitPass: Invalid payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "invalid pass payload")
		return
	}

	events, err := state.App.SubmitPass(state.Game, senderID, request.Cards)
	if err != nil {
		logger.Warn("handleSubmitPass: User %s failed to pass: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

func (mh *matchHandler) handlePlayCard(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request struct {
		Card domain.Card `json:"card"`
	}
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("handlePlayCard: Invalid payload from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "invalid play payload")
		return
	}

	events, err := state.App.PlayCard(state.Game, senderID, request.Card)
	if err != nil {
		logger.Warn("handlePlayCard: User %s failed to play %v: %v", senderID, request.Card, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	for _, ev := range events {
		mh.broadcastEvent(ctx, state, dispatcher, logger, ev)
	}
}

// eventOpCode maps app event kinds to wire opcodes.
func eventOpCode(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventPlayerJoined:
		return OpPlayerJoined, true
	case app.EventPlayerLeft:
		return OpPlayerLeft, true
	case app.EventRoundStarted:
		return OpRoundStarted, true
	case app.EventHandDealt:
		return OpHandDealt, true
	case app.EventPassRequested:
		return OpPassRequested, true
	case app.EventCardsPassed:
		return OpCardsPassed, true
	case app.EventYourTurn:
		return OpYourTurn, true
	case app.EventCardPlayed:
		return OpCardPlayed, true
	case app.EventTrickResolved:
		return OpTrickResolved, true
	case app.EventRoundScored:
		return OpRoundScored, true
	case app.EventGameOver:
		return OpGameOver, true
	case app.EventGameAborted:
		return OpGameAborted, true
	}
	return 0, false
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast).
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If we had intended recipients but none are connected (e.g. they
		// are bots), we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, payload, recipients, nil, true); err != nil {
		logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
	}
}

// sendError sends a game error payload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	payload, err := json.Marshal(map[string]interface{}{
		"code":    code,
		"message": message,
	})
	if err != nil {
		logger.Error("Failed to marshal error payload: %v", err)
		return
	}

	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}

	if err := dispatcher.BroadcastMessage(OpGameError, payload, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("Failed to send error to %s: %v", userID, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	labelBytes, err := json.Marshal(matchLabel{
		Game:  "hearts",
		Open:  state.GetOpenSeatsCount(),
		Phase: string(state.Game.Phase),
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
