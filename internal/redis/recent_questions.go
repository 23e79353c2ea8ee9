package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mansionnet/quizbot/internal/domain"
)

const recentKeyPrefix = "quizbot:recent:"

// RecentQuestions keeps a per-hash marker with a TTL equal to the retention
// window, so the common "was this just asked" check never touches PostgreSQL.
type RecentQuestions struct {
	client *Client
	ttl    time.Duration
}

func NewRecentQuestions(client *Client, ttl time.Duration) *RecentQuestions {
	return &RecentQuestions{client: client, ttl: ttl}
}

func (r *RecentQuestions) MarkAsked(ctx context.Context, contentHash string) error {
	if err := r.client.rdb.Set(ctx, recentKeyPrefix+contentHash, 1, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark question recent: %w", err)
	}
	return nil
}

func (r *RecentQuestions) WasAsked(ctx context.Context, contentHash string) (bool, error) {
	n, err := r.client.rdb.Exists(ctx, recentKeyPrefix+contentHash).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check recent question: %w", err)
	}
	return n > 0, nil
}

// CachedHistory layers RecentQuestions over a HistoryStore: writes land in
// both, recency reads are answered out of Redis when possible.
type CachedHistory struct {
	store  domain.HistoryStore
	recent *RecentQuestions
}

func NewCachedHistory(store domain.HistoryStore, recent *RecentQuestions) *CachedHistory {
	return &CachedHistory{store: store, recent: recent}
}

func (h *CachedHistory) RecordQuestionHistory(ctx context.Context, entry domain.QuestionHistoryEntry) error {
	if err := h.recent.MarkAsked(ctx, entry.ContentHash); err != nil {
		slog.Warn("Failed to mark question recent in redis", "error", err)
	}
	return h.store.RecordQuestionHistory(ctx, entry)
}

func (h *CachedHistory) MarkAnswered(ctx context.Context, contentHash string, correct bool, answerTimeSeconds float64) error {
	return h.store.MarkAnswered(ctx, contentHash, correct, answerTimeSeconds)
}

func (h *CachedHistory) IsRecentlyAsked(ctx context.Context, contentHash string, window time.Duration) (bool, error) {
	recent, err := h.recent.WasAsked(ctx, contentHash)
	if err == nil && recent {
		return true, nil
	}
	if err != nil {
		slog.Debug("Recent-question check fell back to database", "error", err)
	}
	return h.store.IsRecentlyAsked(ctx, contentHash, window)
}
