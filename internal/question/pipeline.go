// Package question implements the question-acquisition pipeline: cache
// lookup, rate-limited generation with retries, validation against history,
// and the built-in fallback set.
package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/mansionnet/quizbot/internal/domain"
	"github.com/mansionnet/quizbot/internal/metrics"
	"github.com/mansionnet/quizbot/internal/platform/retry"
)

// Config tunes the pipeline.
type Config struct {
	Attempts         int
	Backoff          time.Duration
	HistoryRetention time.Duration
}

func DefaultPipelineConfig() Config {
	return Config{
		Attempts:         3,
		Backoff:          2 * time.Second,
		HistoryRetention: 30 * 24 * time.Hour,
	}
}

// Pipeline acquires non-repeating questions for sessions. Safe for use from
// many sessions at once; the only shared mutable state is the token budget
// and the seeded RNG, both individually synchronized.
type Pipeline struct {
	source  domain.QuestionSource
	cache   domain.QuestionCache
	history domain.HistoryStore
	budget  TokenBudget
	picker  *Picker
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	cfg     Config

	mu      sync.Mutex
	rng     *rand.Rand
	recent  []string
	recentN int
}

// NewPipeline wires the pipeline. cache may be nil to disable the
// pre-generation buffer.
func NewPipeline(source domain.QuestionSource, cache domain.QuestionCache, history domain.HistoryStore,
	budget TokenBudget, picker *Picker, clock clockwork.Clock, cfg Config, seed int64) *Pipeline {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "question-source",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		},
	})
	return &Pipeline{
		source:  source,
		cache:   cache,
		history: history,
		budget:  budget,
		picker:  picker,
		breaker: breaker,
		clock:   clock,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		recentN: 20,
	}
}

// Next acquires the next question, preferring the cache, then generation with
// retries, then the built-in fallback set. preferred pins generation to a
// category or difficulty name; empty or unknown names use the weighted mix,
// and a set preference bypasses the cache since the buffer holds questions of
// any category. The chosen question's hash is recorded into exclude, which
// the caller owns for the duration of one game. Fails with
// domain.ErrQuestionSupplyExhausted only when generation and every fallback
// are unavailable.
func (p *Pipeline) Next(ctx context.Context, preferred string, exclude map[string]struct{}) (*domain.Question, error) {
	if preferred == "" {
		if q := p.fromCache(ctx, exclude); q != nil {
			metrics.CacheHits.Inc()
			p.accept(ctx, q, exclude)
			return q, nil
		}
	}

	q, err := p.generate(ctx, preferred, exclude)
	if err == nil {
		p.accept(ctx, q, exclude)
		return q, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	slog.Warn("Question generation exhausted, using fallback set", "error", err)

	p.mu.Lock()
	q = drawFallback(p.rng, exclude)
	p.mu.Unlock()
	if q == nil {
		return nil, domain.ErrQuestionSupplyExhausted
	}
	metrics.FallbackDraws.Inc()
	p.accept(ctx, q, exclude)
	return q, nil
}

// fromCache pops buffered questions until one passes the exclusion check.
func (p *Pipeline) fromCache(ctx context.Context, exclude map[string]struct{}) *domain.Question {
	if p.cache == nil {
		return nil
	}
	for {
		q, err := p.cache.Pop(ctx)
		if err != nil {
			slog.Warn("Question cache unavailable", "error", err)
			return nil
		}
		if q == nil {
			return nil
		}
		if p.usable(ctx, q, exclude) {
			return q
		}
	}
}

// generate runs the retry loop around the Question Source, rotating category
// picks and gating each call on the shared token budget.
func (p *Pipeline) generate(ctx context.Context, preferred string, exclude map[string]struct{}) (*domain.Question, error) {
	policy := retry.Policy{
		MaxAttempts: p.cfg.Attempts,
		Backoff:     p.cfg.Backoff,
		// Rate limiting already waited on the budget; no extra penalty.
		RateLimitBackoff: p.cfg.Backoff,
		Clock:            p.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Debug("Question generation retry", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	classify := func(err error) retry.Action {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Stop
		}
		if errors.Is(err, domain.ErrRateLimited) {
			return retry.After
		}
		return retry.Retry
	}

	return retry.Do(ctx, policy, classify, func() (*domain.Question, error) {
		return p.attempt(ctx, preferred, exclude)
	})
}

// attempt is a single generation try: budget, source call behind the
// breaker, validation, exclusion filtering, surplus caching.
func (p *Pipeline) attempt(ctx context.Context, preferred string, exclude map[string]struct{}) (*domain.Question, error) {
	if err := p.budget.Acquire(ctx); err != nil {
		metrics.GenerationAttempts.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	pick, pinned := Pick{}, false
	if preferred != "" {
		pick, pinned = p.picker.Preferred(preferred)
	}
	if !pinned {
		pick = p.picker.Next()
	}
	result, err := p.breaker.Execute(func() (any, error) {
		return p.source.Generate(ctx, pick.Category, p.recentAnswers())
	})
	if err != nil {
		metrics.GenerationAttempts.WithLabelValues("error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("question source: %w", domain.ErrSourceUnavailable)
		}
		return nil, err
	}
	generated := result.([]*domain.Question)

	var chosen *domain.Question
	var surplus []*domain.Question
	for _, q := range generated {
		if err := Validate(q); err != nil {
			slog.Debug("Rejected generated question", "reason", err)
			continue
		}
		if q.ContentHash == "" {
			q.ContentHash = domain.HashQuestion(q.Text, q.Answer)
		}
		q.Difficulty = pick.Difficulty
		if !p.usable(ctx, q, exclude) {
			continue
		}
		if chosen == nil {
			chosen = q
		} else {
			surplus = append(surplus, q)
		}
	}

	if len(surplus) > 0 && p.cache != nil {
		if err := p.cache.Push(ctx, surplus...); err != nil {
			slog.Warn("Failed to cache surplus questions", "count", len(surplus), "error", err)
		}
	}

	if chosen == nil {
		metrics.GenerationAttempts.WithLabelValues("no_valid_question").Inc()
		return nil, fmt.Errorf("no valid question in batch of %d: %w", len(generated), domain.ErrInvalidResponse)
	}
	metrics.GenerationAttempts.WithLabelValues("ok").Inc()
	return chosen, nil
}

// usable filters out questions already seen this game or asked within the
// retention window.
func (p *Pipeline) usable(ctx context.Context, q *domain.Question, exclude map[string]struct{}) bool {
	if _, used := exclude[q.ContentHash]; used {
		return false
	}
	recent, err := p.history.IsRecentlyAsked(ctx, q.ContentHash, p.cfg.HistoryRetention)
	if err != nil {
		// History being down must not stall the game.
		slog.Warn("History lookup failed", "error", err)
		return true
	}
	return !recent
}

// accept marks the question as issued: exclusion set, recent-answer ring,
// history write.
func (p *Pipeline) accept(ctx context.Context, q *domain.Question, exclude map[string]struct{}) {
	exclude[q.ContentHash] = struct{}{}
	p.mu.Lock()
	p.recent = append(p.recent, q.Answer)
	if len(p.recent) > p.recentN {
		p.recent = p.recent[len(p.recent)-p.recentN:]
	}
	p.mu.Unlock()
	entry := domain.QuestionHistoryEntry{
		ContentHash: q.ContentHash,
		Text:        q.Text,
		Answer:      q.Answer,
		Category:    q.Category,
		LastAsked:   p.clock.Now(),
	}
	if err := p.history.RecordQuestionHistory(ctx, entry); err != nil {
		metrics.PersistenceFailures.WithLabelValues("record_question_history").Inc()
		slog.Warn("Failed to record question history", "hash", q.ContentHash, "error", err)
	}
}

// recentAnswers gives the source an exclusion hint so the model avoids
// regenerating recently issued answers.
func (p *Pipeline) recentAnswers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.recent))
	copy(out, p.recent)
	return out
}
