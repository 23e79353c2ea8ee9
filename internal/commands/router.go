// Package commands maps chat lines to bot actions. Command lines start with
// "!"; anything else during a live game is treated as an answer attempt.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mansionnet/quizbot/internal/domain"
)

// GameControl is the subset of the game registry the router drives.
type GameControl interface {
	Start(channel, category string) error
	Stop(channel, requestedBy string) error
	Running(channel string) bool
	Dispatch(channel, user, text string, at time.Time)
}

type Router struct {
	games   GameControl
	players domain.PlayerStore
	out     domain.Announcer
	admins  map[string]struct{}
}

func NewRouter(games GameControl, players domain.PlayerStore, out domain.Announcer, admins []string) *Router {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return &Router{games: games, players: players, out: out, admins: set}
}

// Handle processes one inbound chat event.
func (r *Router) Handle(ctx context.Context, ev domain.ChatEvent) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	if !strings.HasPrefix(text, "!") {
		r.games.Dispatch(ev.Channel, ev.User, text, ev.At)
		return
	}

	fields := strings.Fields(text)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "!quiz":
		r.handleStart(ev, args)
	case "!stop":
		r.handleStop(ev)
	case "!stats":
		r.handleStats(ctx, ev, args)
	case "!leaderboard":
		r.handleLeaderboard(ctx, ev)
	case "!help":
		r.handleHelp(ev)
	default:
		// Unknown bangs during a game may still be answers ("!!!", "!kqlx").
		if r.games.Running(ev.Channel) {
			r.games.Dispatch(ev.Channel, ev.User, text, ev.At)
		}
	}
}

func (r *Router) handleStart(ev domain.ChatEvent, args []string) {
	// "!quiz geography" or "!quiz hard" pins the game to that category or
	// difficulty; unknown names fall back to the weighted mix.
	category := ""
	if len(args) > 0 {
		category = strings.ToLower(args[0])
	}
	err := r.games.Start(ev.Channel, category)
	if errors.Is(err, domain.ErrGameInProgress) {
		r.out.Say(ev.Channel, "A game is already running! Jump in with your answers.")
		return
	}
	if err != nil {
		slog.Error("Failed to start game", "channel", ev.Channel, "error", err)
		r.out.Say(ev.Channel, "Couldn't start a game right now, try again in a moment.")
	}
}

func (r *Router) handleStop(ev domain.ChatEvent) {
	if !r.isAdmin(ev.User) {
		r.out.Say(ev.Channel, fmt.Sprintf("Sorry %s, only admins can stop a game.", ev.User))
		return
	}
	if err := r.games.Stop(ev.Channel, ev.User); errors.Is(err, domain.ErrNoGameRunning) {
		r.out.Say(ev.Channel, "No game is running. Start one with !quiz")
	}
}

func (r *Router) handleStats(ctx context.Context, ev domain.ChatEvent, args []string) {
	username := ev.User
	if len(args) > 0 {
		username = args[0]
	}

	player, err := r.players.GetPlayer(ctx, username)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		r.out.Say(ev.Channel, fmt.Sprintf("No stats for %s yet. Play a round!", username))
		return
	}
	if err != nil {
		slog.Error("Failed to load player stats", "username", username, "error", err)
		r.out.Say(ev.Channel, "Stats are unavailable right now.")
		return
	}

	line := fmt.Sprintf("%s: %d points across %d games, %d correct answers, best streak %d",
		player.Username, player.TotalScore, player.GamesPlayed, player.CorrectAnswers, player.LongestStreak)
	if player.FastestAnswerSeconds > 0 {
		line += fmt.Sprintf(", fastest answer %.1fs", player.FastestAnswerSeconds)
	}
	r.out.Say(ev.Channel, line)
}

func (r *Router) handleLeaderboard(ctx context.Context, ev domain.ChatEvent) {
	top, err := r.players.TopPlayers(ctx, 5)
	if err != nil {
		slog.Error("Failed to load leaderboard", "error", err)
		r.out.Say(ev.Channel, "Leaderboard is unavailable right now.")
		return
	}
	if len(top) == 0 {
		r.out.Say(ev.Channel, "Nobody on the leaderboard yet. Start a game with !quiz")
		return
	}

	parts := make([]string, len(top))
	for i, p := range top {
		parts[i] = fmt.Sprintf("%d. %s %d", i+1, p.Username, p.TotalScore)
	}
	r.out.Say(ev.Channel, "All-time leaderboard: "+strings.Join(parts, " | "))
}

func (r *Router) handleHelp(ev domain.ChatEvent) {
	r.out.Say(ev.Channel, "Commands: !quiz [category] start a game, !stats [user] your stats, !leaderboard all-time top, !stop end the game (admins). Just type your answer during a game.")
}

func (r *Router) isAdmin(user string) bool {
	_, ok := r.admins[strings.ToLower(user)]
	return ok
}
