package commands

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansionnet/quizbot/internal/domain"
)

type gamesMock struct {
	mu         sync.Mutex
	startErr   error
	stopErr    error
	running    bool
	started    []string
	stopped    []string
	dispatched []string
}

func (g *gamesMock) Start(channel, category string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry := channel
	if category != "" {
		entry += "/" + category
	}
	g.started = append(g.started, entry)
	return g.startErr
}

func (g *gamesMock) Stop(channel, requestedBy string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = append(g.stopped, channel+"/"+requestedBy)
	return g.stopErr
}

func (g *gamesMock) Running(string) bool { return g.running }

func (g *gamesMock) Dispatch(_, user, text string, _ time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dispatched = append(g.dispatched, user+": "+text)
}

type playersMock struct {
	player *domain.PlayerRecord
	getErr error
	top    []domain.PlayerRecord
	topErr error
}

func (p *playersMock) GetPlayer(context.Context, string) (*domain.PlayerRecord, error) {
	return p.player, p.getErr
}

func (p *playersMock) UpsertPlayerAfterAnswer(context.Context, string, int, float64, int) error {
	return nil
}

func (p *playersMock) UpsertPlayerAfterGame(context.Context, string, int) error { return nil }

func (p *playersMock) TopPlayers(context.Context, int) ([]domain.PlayerRecord, error) {
	return p.top, p.topErr
}

type sayMock struct {
	mu    sync.Mutex
	lines []string
}

func (s *sayMock) Say(_, line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

func event(user, text string) domain.ChatEvent {
	return domain.ChatEvent{Channel: "#quiz", User: user, Text: text, At: time.Now()}
}

func newTestRouter(games *gamesMock, players *playersMock) (*Router, *sayMock) {
	out := &sayMock{}
	return NewRouter(games, players, out, []string{"Admin"}), out
}

func TestHandle_QuizStartsGame(t *testing.T) {
	games := &gamesMock{}
	r, _ := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!quiz"))

	assert.Equal(t, []string{"#quiz"}, games.started)
}

func TestHandle_QuizStartsGameWithCategory(t *testing.T) {
	games := &gamesMock{}
	r, _ := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!quiz Geography"))

	assert.Equal(t, []string{"#quiz/geography"}, games.started)
}

func TestHandle_QuizAlreadyRunning(t *testing.T) {
	games := &gamesMock{startErr: domain.ErrGameInProgress}
	r, out := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!quiz"))

	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "already running")
}

func TestHandle_StopRequiresAdmin(t *testing.T) {
	games := &gamesMock{}
	r, out := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!stop"))

	assert.Empty(t, games.stopped)
	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "only admins")
}

func TestHandle_StopByAdmin(t *testing.T) {
	games := &gamesMock{}
	r, _ := newTestRouter(games, &playersMock{})

	// Admin membership is case-insensitive.
	r.Handle(context.Background(), event("admin", "!stop"))

	assert.Equal(t, []string{"#quiz/admin"}, games.stopped)
}

func TestHandle_StopWithoutGame(t *testing.T) {
	games := &gamesMock{stopErr: domain.ErrNoGameRunning}
	r, out := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("admin", "!stop"))

	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "No game is running")
}

func TestHandle_StatsSelfAndOther(t *testing.T) {
	players := &playersMock{player: &domain.PlayerRecord{
		Username:             "alice",
		TotalScore:           120,
		GamesPlayed:          4,
		CorrectAnswers:       17,
		LongestStreak:        6,
		FastestAnswerSeconds: 2.4,
	}}
	r, out := newTestRouter(&gamesMock{}, players)

	r.Handle(context.Background(), event("alice", "!stats"))
	r.Handle(context.Background(), event("bob", "!stats alice"))

	require.Len(t, out.lines, 2)
	assert.Contains(t, out.lines[0], "alice: 120 points across 4 games")
	assert.Contains(t, out.lines[0], "fastest answer 2.4s")
}

func TestHandle_StatsUnknownPlayer(t *testing.T) {
	players := &playersMock{getErr: domain.ErrPlayerNotFound}
	r, out := newTestRouter(&gamesMock{}, players)

	r.Handle(context.Background(), event("alice", "!stats ghost"))

	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "No stats for ghost")
}

func TestHandle_Leaderboard(t *testing.T) {
	players := &playersMock{top: []domain.PlayerRecord{
		{Username: "alice", TotalScore: 120},
		{Username: "bob", TotalScore: 90},
	}}
	r, out := newTestRouter(&gamesMock{}, players)

	r.Handle(context.Background(), event("alice", "!leaderboard"))

	require.Len(t, out.lines, 1)
	assert.Equal(t, "All-time leaderboard: 1. alice 120 | 2. bob 90", out.lines[0])
}

func TestHandle_PlainTextDispatchesAsAnswer(t *testing.T) {
	games := &gamesMock{running: true}
	r, _ := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "jupiter"))
	r.Handle(context.Background(), event("alice", "   "))

	assert.Equal(t, []string{"alice: jupiter"}, games.dispatched)
}

func TestHandle_UnknownBangDuringGameIsAnswer(t *testing.T) {
	games := &gamesMock{running: true}
	r, _ := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!!!"))

	assert.Equal(t, []string{"alice: !!!"}, games.dispatched)
}

func TestHandle_UnknownBangWithoutGameIgnored(t *testing.T) {
	games := &gamesMock{}
	r, out := newTestRouter(games, &playersMock{})

	r.Handle(context.Background(), event("alice", "!unknown"))

	assert.Empty(t, games.dispatched)
	assert.Empty(t, out.lines)
}

func TestHandle_Help(t *testing.T) {
	r, out := newTestRouter(&gamesMock{}, &playersMock{})

	r.Handle(context.Background(), event("alice", "!help"))

	require.Len(t, out.lines, 1)
	assert.Contains(t, out.lines[0], "!quiz")
}