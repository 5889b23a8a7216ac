package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/InnerAnythings/hearts-server/internal/app"
	"github.com/InnerAnythings/hearts-server/internal/bot"
	"github.com/InnerAnythings/hearts-server/internal/domain"

	"github.com/pterm/pterm"
)

// simulate runs a complete four-bot game locally and renders it to the
// terminal. Useful for eyeballing rule changes and bot behaviour without a
// running Nakama instance.
func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed for the deal and the bots")
	endScore := flag.Int("end-score", domain.DefaultEndScore, "total score that ends the game")
	verbose := flag.Bool("verbose", false, "print every card played")
	flag.Parse()

	if err := run(*seed, *endScore, *verbose); err != nil {
		pterm.Error.Printfln("Simulation failed: %v", err)
		os.Exit(1)
	}
}

func run(seed int64, endScore int, verbose bool) error {
	pterm.DefaultHeader.Printfln("Hearts simulation (seed %d)", seed)

	rng := rand.New(rand.NewSource(seed))
	service := app.NewService(rng)
	game := domain.NewGame(endScore)

	agents := make(map[string]*bot.Agent, domain.SeatCount)
	var allEvents []app.Event
	for i := 0; i < domain.SeatCount; i++ {
		identity := bot.GetBotIdentity(i)
		agent, err := bot.NewAgent(identity.UserID, rand.New(rand.NewSource(seed+int64(i)+1)))
		if err != nil {
			return err
		}
		agents[identity.UserID] = agent

		events, err := service.Join(game, identity.UserID, identity.DisplayName)
		if err != nil {
			return err
		}
		allEvents = append(allEvents, events...)
	}
	render(game, allEvents, verbose)

	for game.Phase != domain.PhaseGameOver {
		var (
			events []app.Event
			err    error
		)
		switch game.Phase {
		case domain.PhasePassing:
			events, err = submitBotPasses(service, game, agents)
		case domain.PhasePlaying:
			uid := game.Seats[game.CurrentTurn]
			card, selectErr := agents[uid].SelectPlay(game)
			if selectErr != nil {
				return selectErr
			}
			events, err = service.PlayCard(game, uid, card)
		case domain.PhaseTrickComplete:
			events, err = service.AdvanceTrick(game)
		case domain.PhaseRoundScoring:
			events, err = service.ScoreRound(game)
			if err == nil && game.Phase != domain.PhaseGameOver {
				var more []app.Event
				more, err = service.StartRound(game)
				events = append(events, more...)
			}
		default:
			return fmt.Errorf("simulation stuck in phase %q", game.Phase)
		}
		if err != nil {
			return err
		}
		render(game, events, verbose)
	}

	return nil
}

func submitBotPasses(service *app.Service, game *domain.Game, agents map[string]*bot.Agent) ([]app.Event, error) {
	var allEvents []app.Event
	for _, uid := range game.Seats {
		selection, err := agents[uid].SelectPass(game)
		if err != nil {
			return nil, err
		}
		events, err := service.SubmitPass(game, uid, selection)
		if err != nil {
			return nil, err
		}
		allEvents = append(allEvents, events...)
	}
	return allEvents, nil
}

func render(game *domain.Game, events []app.Event, verbose bool) {
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case app.PlayerJoinedPayload:
			pterm.Info.Printfln("%s took seat %d", p.DisplayName, p.Seat)
		case app.RoundStartedPayload:
			pterm.DefaultSection.Printfln("Round %d (pass %s)", p.Round, p.Direction)
		case app.CardsPassedPayload:
			if verbose {
				pterm.Info.Printfln("%s received %s", seatName(game, p.UserID), cards(p.Received))
			}
		case app.CardPlayedPayload:
			if verbose {
				pterm.Printfln("  seat %d plays %s", p.Seat, cardString(p.Card))
			}
		case app.TrickResolvedPayload:
			pterm.Printfln("Trick %d: seat %d takes %s for %d point(s)",
				game.TricksPlayed, p.WinnerSeat, cardString(p.WinningCard), p.Points)
		case app.RoundScoredPayload:
			renderScoreboard(game, p)
		case app.GameOverPayload:
			names := make([]string, 0, len(p.WinnerSeats))
			for _, seat := range p.WinnerSeats {
				names = append(names, seatName(game, game.Seats[seat]))
			}
			pterm.Success.Printfln("Game over after %d round(s). Winner(s): %v", game.Round, names)
		}
	}
}

func renderScoreboard(game *domain.Game, p app.RoundScoredPayload) {
	if p.MoonSeat >= 0 {
		pterm.Warning.Printfln("%s shot the moon!", seatName(game, game.Seats[p.MoonSeat]))
	}

	data := pterm.TableData{{"Seat", "Player", "Round", "Total"}}
	for _, score := range p.Scores {
		data = append(data, []string{
			strconv.Itoa(score.Seat),
			seatName(game, score.UserID),
			strconv.Itoa(score.RoundScore),
			strconv.Itoa(score.TotalScore),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func seatName(game *domain.Game, userID string) string {
	if p, err := game.PlayerByID(userID); err == nil {
		return p.DisplayName
	}
	return userID
}

func cards(hand []domain.Card) string {
	out := ""
	for i, c := range hand {
		if i > 0 {
			out += " "
		}
		out += cardString(c)
	}
	return out
}

// cardString colors the red suits the way a table would.
func cardString(c domain.Card) string {
	if c.Suit == domain.SuitHearts || c.Suit == domain.SuitDiamonds {
		return pterm.Red(c.String())
	}
	return c.String()
}
