package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansionnet/quizbot/internal/answer"
	"github.com/mansionnet/quizbot/internal/domain"
)

const waitFor = 2 * time.Second

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) Say(_, line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *lineRecorder) contains(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (r *lineRecorder) count(substr string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

type stubProvider struct {
	mu         sync.Mutex
	queue      []*domain.Question
	err        error
	calls      int
	categories []string
}

func (p *stubProvider) Next(_ context.Context, preferred string, exclude map[string]struct{}) (*domain.Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.categories = append(p.categories, preferred)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.queue) == 0 {
		return nil, domain.ErrQuestionSupplyExhausted
	}
	q := p.queue[0]
	p.queue = p.queue[1:]
	exclude[q.ContentHash] = struct{}{}
	return q, nil
}

// hangingProvider simulates a provider stuck in generation retries: it only
// returns once its context is cancelled.
type hangingProvider struct {
	started chan struct{}
	once    sync.Once
}

func (p *hangingProvider) Next(ctx context.Context, _ string, _ map[string]struct{}) (*domain.Question, error) {
	p.once.Do(func() { close(p.started) })
	<-ctx.Done()
	return nil, ctx.Err()
}

type playersStub struct {
	mu          sync.Mutex
	answerCalls []string
	gameScores  map[string]int
	top         []domain.PlayerRecord
}

func (p *playersStub) GetPlayer(context.Context, string) (*domain.PlayerRecord, error) {
	return nil, domain.ErrPlayerNotFound
}

func (p *playersStub) UpsertPlayerAfterAnswer(_ context.Context, username string, _ int, _ float64, _ int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answerCalls = append(p.answerCalls, username)
	return nil
}

func (p *playersStub) UpsertPlayerAfterGame(_ context.Context, username string, score int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gameScores == nil {
		p.gameScores = make(map[string]int)
	}
	p.gameScores[username] = score
	return nil
}

func (p *playersStub) TopPlayers(context.Context, int) ([]domain.PlayerRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.top, nil
}

type historyStub struct {
	mu     sync.Mutex
	marked []string
}

func (h *historyStub) RecordQuestionHistory(context.Context, domain.QuestionHistoryEntry) error {
	return nil
}

func (h *historyStub) MarkAnswered(_ context.Context, hash string, _ bool, _ float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.marked = append(h.marked, hash)
	return nil
}

func (h *historyStub) IsRecentlyAsked(context.Context, string, time.Duration) (bool, error) {
	return false, nil
}

func gameQuestion(text, ans string) *domain.Question {
	return &domain.Question{
		Text:        text,
		Answer:      ans,
		Category:    "general",
		Fact:        "A well known fact.",
		ContentHash: domain.HashQuestion(text, ans),
	}
}

type fixture struct {
	clock    *clockwork.FakeClock
	out      *lineRecorder
	provider *stubProvider
	players  *playersStub
	history  *historyStub
	session  *Session
	removed  chan string
}

func newFixture(t *testing.T, cfg Config, questions ...*domain.Question) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		out:      &lineRecorder{},
		provider: &stubProvider{queue: questions},
		players:  &playersStub{},
		history:  &historyStub{},
		removed:  make(chan string, 1),
	}
	deps := Deps{
		Judge:    answer.NewJudge(answer.DefaultConfig()),
		Provider: f.provider,
		Players:  f.players,
		History:  f.history,
		Announce: f.out,
		Clock:    f.clock,
		Config:   cfg,
	}
	f.session = NewSession("#quiz", "", deps, func(ch string) { f.removed <- ch })
	return f
}

func (f *fixture) waitForLine(t *testing.T, substr string) {
	t.Helper()
	require.Eventually(t, func() bool { return f.out.contains(substr) },
		waitFor, 5*time.Millisecond, "never announced %q", substr)
}

// waitForTimer blocks until the actor has armed its next clockwork timer.
func (f *fixture) waitForTimer(t *testing.T) {
	t.Helper()
	f.clock.BlockUntil(1)
}

// barrier waits until the actor has drained every event sent so far. Needed
// before advancing the clock into the inter-question delay: the delay timer
// is only armed once grading completes.
func (f *fixture) barrier() {
	f.session.inspect()
}

func (f *fixture) winAndAdvance(t *testing.T, delay time.Duration) {
	t.Helper()
	f.barrier()
	f.clock.Advance(delay)
}

func (f *fixture) waitRemoved(t *testing.T) {
	t.Helper()
	select {
	case <-f.removed:
	case <-time.After(waitFor):
		t.Fatal("session never removed")
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QuestionsPerGame = 2
	return cfg
}

func TestSession_FirstCorrectAnswerWins(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")

	f.waitForTimer(t)
	f.clock.Advance(5 * time.Second)
	f.session.Answer("alice", "jupiter")
	f.waitForLine(t, "alice got it!")

	// 25s of a 30s window left: base 9, speed x1.5, no streak yet.
	f.waitForLine(t, "+13 points")

	snap := f.session.inspect()
	assert.Equal(t, 13, snap.scores["alice"])
	assert.Equal(t, 1, snap.streaks["alice"])
}

func TestSession_SecondCorrectAnswerIsDropped(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")

	f.waitForTimer(t)
	f.clock.Advance(5 * time.Second)
	f.session.Answer("alice", "jupiter")
	f.session.Answer("bob", "jupiter")
	f.waitForLine(t, "alice got it!")

	snap := f.session.inspect()
	assert.NotContains(t, snap.scores, "bob")
	assert.Equal(t, 1, f.out.count("got it!"))
}

func TestSession_SpamGuardIgnoresInstantAnswers(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")
	f.waitForTimer(t)

	// Within the guard window: ignored even though correct.
	f.session.Answer("alice", "jupiter")
	snap := f.session.inspect()
	assert.Empty(t, snap.scores)
	assert.Equal(t, statusAwaitingAnswer, snap.status)

	f.clock.Advance(time.Second)
	f.session.Answer("alice", "jupiter")
	f.waitForLine(t, "alice got it!")
}

func TestSession_WrongAnswerResetsStreakSilently(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")

	f.waitForTimer(t)
	f.clock.Advance(5 * time.Second)
	f.session.Answer("bob", "saturn")
	f.session.Answer("alice", "jupiter")
	f.waitForLine(t, "alice got it!")

	snap := f.session.inspect()
	assert.Equal(t, 0, snap.streaks["bob"])
	assert.False(t, f.out.contains("saturn"), "wrong answers get no reply")
}

func TestSession_TimeoutAnnouncesAnswerAndKeepsPassiveStreaks(t *testing.T) {
	cfg := testConfig()
	f := newFixture(t, cfg,
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")

	// alice wins question one and builds a streak.
	f.waitForTimer(t)
	f.clock.Advance(5 * time.Second)
	f.session.Answer("alice", "jupiter")
	f.waitForLine(t, "alice got it!")

	// Past the inter-question delay, then question two times out untouched.
	f.winAndAdvance(t, cfg.QuestionDelay)
	f.waitForLine(t, "Question 2/2")
	f.waitForTimer(t)
	f.clock.Advance(cfg.QuestionTimeout)
	f.waitForLine(t, "Time's up! The answer was: Tokyo")

	f.waitRemoved(t)
	assert.True(t, f.out.contains("Game over!"))
}

func TestSession_StopCancelsPendingTimer(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session.Start()
	f.waitForLine(t, "Question 1/2")
	f.waitForTimer(t)

	f.session.Stop("admin")
	f.waitForLine(t, "Game stopped by admin.")
	f.waitRemoved(t)

	f.clock.Advance(time.Minute)
	assert.False(t, f.out.contains("Time's up"), "cancelled timer must not fire")
}

func TestSession_StreakMultiplierKicksInAtThree(t *testing.T) {
	cfg := testConfig()
	cfg.QuestionsPerGame = 3
	f := newFixture(t, cfg,
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"),
		gameQuestion("Who painted the Mona Lisa?", "Leonardo da Vinci"))
	f.session.Start()

	answers := []string{"jupiter", "tokyo", "da vinci"}
	for i, ans := range answers {
		f.waitForLine(t, "Question "+string(rune('1'+i))+"/3")
		f.waitForTimer(t)
		f.clock.Advance(5 * time.Second)
		f.session.Answer("alice", ans)
		if i < len(answers)-1 {
			f.winAndAdvance(t, cfg.QuestionDelay)
		}
	}

	f.waitForLine(t, "3 in a row!")
	f.waitRemoved(t)

	// Three answers at 25s remaining: 13 + 13 + floor(9*1.5*1.5)=20.
	require.NotNil(t, f.players.gameScores)
	assert.Equal(t, 46, f.players.gameScores["alice"])
}

func TestSession_CompletesFullGame(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.players.top = []domain.PlayerRecord{{Username: "carol", TotalScore: 500}}
	f.session.Start()

	for i, ans := range []string{"jupiter", "tokyo"} {
		f.waitForLine(t, "Question "+string(rune('1'+i))+"/2")
		f.waitForTimer(t)
		f.clock.Advance(5 * time.Second)
		f.session.Answer("alice", ans)
		if i == 0 {
			f.winAndAdvance(t, DefaultConfig().QuestionDelay)
		}
	}

	f.waitForLine(t, "Game over!")
	f.waitForLine(t, "Standings: 1. alice")
	f.waitForLine(t, "All-time top 1: 1. carol 500")
	f.waitRemoved(t)

	f.players.mu.Lock()
	defer f.players.mu.Unlock()
	assert.Equal(t, []string{"alice", "alice"}, f.players.answerCalls)
	assert.Equal(t, 26, f.players.gameScores["alice"])
}

func TestSession_ProviderFailureEndsGameGracefully(t *testing.T) {
	f := newFixture(t, testConfig())
	f.provider.err = errors.New("upstream down")
	f.session.Start()

	f.waitForLine(t, "I ran out of questions")
	f.waitRemoved(t)
}

func TestSession_ResetStreaksOnTimeoutFlag(t *testing.T) {
	cfg := testConfig()
	cfg.QuestionsPerGame = 3
	cfg.ResetStreaksOnTimeout = true
	f := newFixture(t, cfg,
		gameQuestion("What is the largest planet?", "Jupiter"),
		gameQuestion("What is the capital of Japan?", "Tokyo"),
		gameQuestion("Who painted the Mona Lisa?", "Leonardo da Vinci"))
	f.session.Start()
	f.waitForLine(t, "Question 1/3")

	f.waitForTimer(t)
	f.clock.Advance(5 * time.Second)
	f.session.Answer("alice", "jupiter")
	f.waitForLine(t, "alice got it!")

	f.winAndAdvance(t, cfg.QuestionDelay)
	f.waitForLine(t, "Question 2/3")
	f.waitForTimer(t)
	f.clock.Advance(cfg.QuestionTimeout)
	f.waitForLine(t, "Time's up!")

	snap := f.session.inspect()
	assert.Equal(t, 0, snap.streaks["alice"], "flag resets every streak on timeout")
}

func TestSession_StopUnwindsQuestionAcquisition(t *testing.T) {
	f := newFixture(t, testConfig())
	provider := &hangingProvider{started: make(chan struct{})}
	f.session.deps.Provider = provider
	f.session.Start()

	select {
	case <-provider.started:
	case <-time.After(waitFor):
		t.Fatal("provider never called")
	}

	done := make(chan struct{})
	go func() {
		f.session.Stop("admin")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("stop waited on an in-flight acquisition")
	}

	f.waitForLine(t, "Game stopped by admin.")
	f.waitRemoved(t)
	assert.False(t, f.out.contains("Question 1"), "no question may open after a stop")
}

func TestSession_PassesCategoryToProvider(t *testing.T) {
	f := newFixture(t, testConfig(),
		gameQuestion("Which river flows through Cairo?", "Nile"),
		gameQuestion("What is the capital of Japan?", "Tokyo"))
	f.session = NewSession("#quiz", "geography", f.session.deps, func(string) {})
	f.session.Start()
	f.waitForLine(t, "Question 1/2")

	f.provider.mu.Lock()
	got := append([]string(nil), f.provider.categories...)
	f.provider.mu.Unlock()
	require.NotEmpty(t, got)
	assert.Equal(t, "geography", got[0])

	f.session.Stop("cleanup")
}
