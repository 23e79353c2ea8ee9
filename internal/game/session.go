// Package game runs live quiz sessions. Each channel gets at most one
// session, driven by its own actor goroutine; the registry maps channels to
// sessions and routes chat events.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mansionnet/quizbot/internal/domain"
	"github.com/mansionnet/quizbot/internal/metrics"
	"github.com/mansionnet/quizbot/internal/scoring"
)

// QuestionProvider acquires the next question for a game. preferred is the
// category or difficulty the game was started with, empty for no preference.
// The exclude set is owned by the session and carries every hash issued
// during this game.
type QuestionProvider interface {
	Next(ctx context.Context, preferred string, exclude map[string]struct{}) (*domain.Question, error)
}

// Config tunes one session's gameplay.
type Config struct {
	QuestionTimeout       time.Duration
	QuestionDelay         time.Duration
	MinAnswerGuard        time.Duration
	QuestionsPerGame      int
	Scoring               scoring.Config
	ResetStreaksOnTimeout bool
	LeaderboardSize       int
}

func DefaultConfig() Config {
	return Config{
		QuestionTimeout:  30 * time.Second,
		QuestionDelay:    2 * time.Second,
		MinAnswerGuard:   500 * time.Millisecond,
		QuestionsPerGame: 10,
		Scoring:          scoring.DefaultConfig(),
		LeaderboardSize:  5,
	}
}

type status int

const (
	statusIdle status = iota
	statusAwaitingAnswer
	statusGrading
	statusFinished
	statusStopped
)

// judge is the subset of the answer package a session needs.
type judge interface {
	Correct(candidate string, q *domain.Question) bool
}

// Deps carries everything a session needs beyond its own state.
type Deps struct {
	Judge    judge
	Provider QuestionProvider
	Players  domain.PlayerStore
	History  domain.HistoryStore
	Announce domain.Announcer
	Clock    clockwork.Clock
	Config   Config
}

// --- Command types ---

type sessionCmd interface{ sessionCmd() }

type cmdAnswer struct {
	user string
	text string
}

func (cmdAnswer) sessionCmd() {}

type cmdTimerFired struct {
	seq int
}

func (cmdTimerFired) sessionCmd() {}

type cmdAskNext struct {
	seq int
}

func (cmdAskNext) sessionCmd() {}

type cmdStop struct {
	requestedBy string
	doneCh      chan struct{}
}

func (cmdStop) sessionCmd() {}

type cmdSnapshot struct {
	replyCh chan snapshot
}

func (cmdSnapshot) sessionCmd() {}

type snapshot struct {
	status    status
	remaining int
	scores    map[string]int
	streaks   map[string]int
}

// --- Session ---

// Session is one running game on one channel. All mutable state lives inside
// the actor goroutine; external callers only ever touch the command channel.
type Session struct {
	channel  string
	category string
	deps     Deps
	cfg      Config

	cmdCh    chan sessionCmd
	ctx      context.Context
	cancel   context.CancelFunc
	stopping chan struct{}
	stopOnce sync.Once

	onFinished func(channel string)

	// Actor-owned state below. Never touched outside run().
	status      status
	seq         int
	current     *domain.Question
	openedAt    time.Time
	asked       int
	exclude     map[string]struct{}
	scores      map[string]int
	correct     map[string]int
	streaks     map[string]int
	questionTmr clockwork.Timer
	delayTmr    clockwork.Timer
}

func NewSession(channel, category string, deps Deps, onFinished func(channel string)) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		channel:    channel,
		category:   category,
		deps:       deps,
		cfg:        deps.Config,
		cmdCh:      make(chan sessionCmd, 256),
		ctx:        ctx,
		cancel:     cancel,
		stopping:   make(chan struct{}),
		onFinished: onFinished,
		exclude:    make(map[string]struct{}),
		scores:     make(map[string]int),
		correct:    make(map[string]int),
		streaks:    make(map[string]int),
	}
}

// Start launches the session's actor goroutine and asks the first question.
func (s *Session) Start() {
	go s.run()
}

// Answer feeds a candidate answer into the session. Non-blocking: if the
// actor is busy acquiring a question, late spam is dropped rather than queued
// behind it.
func (s *Session) Answer(user, text string) {
	select {
	case s.cmdCh <- cmdAnswer{user: user, text: text}:
	default:
		slog.Debug("Dropping answer, session busy", "channel", s.channel, "user", user)
	}
}

// Stop ends the game early and blocks until the actor has wound down. The
// stop signal fires before the command is queued so an actor blocked in
// question acquisition unwinds immediately instead of waiting out retries.
func (s *Session) Stop(requestedBy string) {
	s.stopOnce.Do(func() { close(s.stopping) })
	doneCh := make(chan struct{})
	select {
	case s.cmdCh <- cmdStop{requestedBy: requestedBy, doneCh: doneCh}:
		select {
		case <-doneCh:
		case <-s.ctx.Done():
		}
	case <-s.ctx.Done():
	}
}

func (s *Session) stopRequested() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

func (s *Session) run() {
	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	s.say("Quiz time! %d questions, %ds each. First correct answer scores.",
		s.cfg.QuestionsPerGame, int(s.cfg.QuestionTimeout.Seconds()))
	s.askQuestion()
	if s.status == statusFinished || s.status == statusStopped {
		return
	}

	for {
		select {
		case cmd := <-s.cmdCh:
			switch c := cmd.(type) {
			case cmdAnswer:
				s.handleAnswer(c)
			case cmdTimerFired:
				s.handleTimeout(c)
			case cmdAskNext:
				if c.seq == s.seq && s.status == statusGrading {
					s.askQuestion()
				}
			case cmdStop:
				s.handleStop(c)
				return
			case cmdSnapshot:
				c.replyCh <- s.snapshot()
			}
			if s.status == statusFinished || s.status == statusStopped {
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// askQuestion acquires and announces the next question, arming its timeout.
// Acquisition happens inside the actor goroutine: no question is open while
// it runs, so serialized access is exactly what we want. A stop request
// cancels the acquisition context, so retry backoffs and budget waits unwind
// right away; a question that still comes back is discarded, and the queued
// stop command wraps the game up.
func (s *Session) askQuestion() {
	acqCtx, acqCancel := context.WithCancel(s.ctx)
	go func() {
		select {
		case <-s.stopping:
			acqCancel()
		case <-acqCtx.Done():
		}
	}()
	q, err := s.deps.Provider.Next(acqCtx, s.category, s.exclude)
	acqCancel()

	if s.stopRequested() {
		return
	}
	if err != nil {
		if s.ctx.Err() != nil {
			s.status = statusStopped
			return
		}
		slog.Error("Question acquisition failed, ending game", "channel", s.channel, "error", err)
		s.say("I ran out of questions, sorry. Ending the game here.")
		s.finish()
		return
	}

	s.seq++
	s.current = q
	s.openedAt = s.deps.Clock.Now()
	s.asked++
	s.status = statusAwaitingAnswer

	metrics.QuestionsAsked.WithLabelValues(q.Category).Inc()
	s.say("Question %d/%d [%s]: %s", s.asked, s.cfg.QuestionsPerGame, q.Category, q.Text)

	seq := s.seq
	s.questionTmr = s.deps.Clock.AfterFunc(s.cfg.QuestionTimeout, func() {
		select {
		case s.cmdCh <- cmdTimerFired{seq: seq}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) handleAnswer(c cmdAnswer) {
	if s.status != statusAwaitingAnswer {
		metrics.AnswersGraded.WithLabelValues("dropped").Inc()
		return
	}

	elapsed := s.deps.Clock.Now().Sub(s.openedAt)
	if elapsed < s.cfg.MinAnswerGuard {
		metrics.AnswersGraded.WithLabelValues("guarded").Inc()
		return
	}

	if !s.deps.Judge.Correct(c.text, s.current) {
		metrics.AnswersGraded.WithLabelValues("wrong").Inc()
		// Wrong answers cost the streak immediately. Players who stay quiet
		// keep theirs through a timeout.
		s.streaks[c.user] = 0
		return
	}

	// First correct answer wins; the timer is dead before anything else runs.
	s.questionTmr.Stop()
	s.status = statusGrading
	metrics.AnswersGraded.WithLabelValues("correct").Inc()
	metrics.AnswerLatency.Observe(elapsed.Seconds())

	streakAfter := s.streaks[c.user] + 1
	s.streaks[c.user] = streakAfter
	s.correct[c.user]++

	remaining := s.cfg.QuestionTimeout - elapsed
	result := scoring.Score(s.cfg.Scoring, remaining, s.cfg.QuestionTimeout, streakAfter)
	s.scores[c.user] += result.Points

	s.announceWin(c.user, streakAfter, result)
	s.persistAnswer(c.user, result.Points, elapsed, streakAfter)
	s.scheduleNext()
}

func (s *Session) handleTimeout(c cmdTimerFired) {
	// A fire for a superseded question means the answer came in as the timer
	// expired; the answer won.
	if c.seq != s.seq || s.status != statusAwaitingAnswer {
		return
	}

	s.status = statusGrading
	s.say("Time's up! The answer was: %s", s.current.Answer)
	if s.current.Fact != "" {
		s.say("Did you know? %s", s.current.Fact)
	}

	if s.cfg.ResetStreaksOnTimeout {
		clear(s.streaks)
	}

	hash := s.current.ContentHash
	if err := s.deps.History.MarkAnswered(s.ctx, hash, false, 0); err != nil {
		metrics.PersistenceFailures.WithLabelValues("mark_answered").Inc()
		slog.Warn("Failed to record timeout", "channel", s.channel, "error", err)
	}

	s.scheduleNext()
}

func (s *Session) handleStop(c cmdStop) {
	defer close(c.doneCh)

	if s.status == statusFinished || s.status == statusStopped {
		return
	}
	s.stopTimers()
	s.status = statusStopped

	slog.Info("Game stopped", "channel", s.channel, "by", c.requestedBy, "questions_asked", s.asked)
	s.say("Game stopped by %s.", c.requestedBy)
	if len(s.scores) > 0 {
		s.announceStandings()
		s.persistGame()
	}

	s.cancel()
	if s.onFinished != nil {
		s.onFinished(s.channel)
	}
}

// scheduleNext moves to the next question after the inter-question delay, or
// finishes the game when the budget is spent.
func (s *Session) scheduleNext() {
	if s.asked >= s.cfg.QuestionsPerGame {
		s.finish()
		return
	}

	seq := s.seq
	s.delayTmr = s.deps.Clock.AfterFunc(s.cfg.QuestionDelay, func() {
		select {
		case s.cmdCh <- cmdAskNext{seq: seq}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) finish() {
	s.stopTimers()
	s.status = statusFinished

	s.say("Game over!")
	if len(s.scores) > 0 {
		s.announceStandings()
		s.persistGame()
		s.announceAllTime()
	} else {
		s.say("Nobody scored this round. Better luck next time!")
	}

	slog.Info("Game finished", "channel", s.channel, "questions_asked", s.asked, "players", len(s.scores))
	s.cancel()
	if s.onFinished != nil {
		s.onFinished(s.channel)
	}
}

func (s *Session) announceWin(user string, streakAfter int, result scoring.Result) {
	line := fmt.Sprintf("%s got it! The answer was: %s (+%d points", user, s.current.Answer, result.Points)
	if result.TotalMult() > 1 {
		line += fmt.Sprintf(", base %d x%.1f streak x%.1f speed", result.Base, result.StreakMult, result.SpeedMult)
	}
	line += ")"
	if streakAfter >= 3 {
		line += fmt.Sprintf(" %d in a row!", streakAfter)
	}
	s.say("%s", line)
	if s.current.Fact != "" {
		s.say("Did you know? %s", s.current.Fact)
	}
}

// announceStandings prints the in-game ranking, score first, correct answer
// count as tiebreak.
func (s *Session) announceStandings() {
	type entry struct {
		user    string
		score   int
		correct int
	}
	entries := make([]entry, 0, len(s.scores))
	for user, score := range s.scores {
		entries = append(entries, entry{user, score, s.correct[user]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].correct != entries[j].correct {
			return entries[i].correct > entries[j].correct
		}
		return entries[i].user < entries[j].user
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%d. %s %d pts (%d correct)", i+1, e.user, e.score, e.correct)
	}
	s.say("Standings: %s", strings.Join(parts, " | "))
}

func (s *Session) announceAllTime() {
	top, err := s.deps.Players.TopPlayers(s.ctx, s.cfg.LeaderboardSize)
	if err != nil {
		slog.Warn("Failed to load leaderboard", "channel", s.channel, "error", err)
		return
	}
	if len(top) == 0 {
		return
	}
	parts := make([]string, len(top))
	for i, p := range top {
		parts[i] = fmt.Sprintf("%d. %s %d", i+1, p.Username, p.TotalScore)
	}
	s.say("All-time top %d: %s", len(top), strings.Join(parts, " | "))
}

// persistAnswer writes per-answer stats. Best effort: persistence being down
// never stalls the game.
func (s *Session) persistAnswer(user string, points int, elapsed time.Duration, streakAfter int) {
	if err := s.deps.Players.UpsertPlayerAfterAnswer(s.ctx, user, points, elapsed.Seconds(), streakAfter); err != nil {
		metrics.PersistenceFailures.WithLabelValues("upsert_player_answer").Inc()
		slog.Warn("Failed to persist answer", "channel", s.channel, "user", user, "error", err)
	}
	if err := s.deps.History.MarkAnswered(s.ctx, s.current.ContentHash, true, elapsed.Seconds()); err != nil {
		metrics.PersistenceFailures.WithLabelValues("mark_answered").Inc()
		slog.Warn("Failed to record answer in history", "channel", s.channel, "error", err)
	}
}

func (s *Session) persistGame() {
	for user, score := range s.scores {
		if err := s.deps.Players.UpsertPlayerAfterGame(s.ctx, user, score); err != nil {
			metrics.PersistenceFailures.WithLabelValues("upsert_player_game").Inc()
			slog.Warn("Failed to persist game result", "channel", s.channel, "user", user, "error", err)
		}
	}
}

func (s *Session) stopTimers() {
	if s.questionTmr != nil {
		s.questionTmr.Stop()
	}
	if s.delayTmr != nil {
		s.delayTmr.Stop()
	}
}

func (s *Session) snapshot() snapshot {
	scores := make(map[string]int, len(s.scores))
	for k, v := range s.scores {
		scores[k] = v
	}
	streaks := make(map[string]int, len(s.streaks))
	for k, v := range s.streaks {
		streaks[k] = v
	}
	return snapshot{
		status:    s.status,
		remaining: s.cfg.QuestionsPerGame - s.asked,
		scores:    scores,
		streaks:   streaks,
	}
}

// inspect returns a copy of the actor state. Synchronizes with the actor, so
// it also serves as a barrier after feeding events in.
func (s *Session) inspect() snapshot {
	replyCh := make(chan snapshot, 1)
	select {
	case s.cmdCh <- cmdSnapshot{replyCh: replyCh}:
		select {
		case snap := <-replyCh:
			return snap
		case <-s.ctx.Done():
		}
	case <-s.ctx.Done():
	}
	// Session is gone; actor state is off limits from this goroutine.
	return snapshot{}
}

func (s *Session) say(format string, args ...any) {
	s.deps.Announce.Say(s.channel, fmt.Sprintf(format, args...))
}
