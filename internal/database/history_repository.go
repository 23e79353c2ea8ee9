package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mansionnet/quizbot/internal/domain"
)

// HistoryRepo implements domain.HistoryStore backed by PostgreSQL.
type HistoryRepo struct {
	db *DB
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// RecordQuestionHistory upserts the question row and bumps its ask count.
func (r *HistoryRepo) RecordQuestionHistory(ctx context.Context, entry domain.QuestionHistoryEntry) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO question_history (content_hash, question, answer, category, times_asked, last_asked)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (content_hash) DO UPDATE SET
			times_asked = question_history.times_asked + 1,
			last_asked = NOW()
	`, entry.ContentHash, entry.Text, entry.Answer, entry.Category)
	if err != nil {
		return fmt.Errorf("failed to record question history: %w", err)
	}
	return nil
}

// MarkAnswered folds the outcome of one round into the question's aggregates.
// The running average only counts correct answers.
func (r *HistoryRepo) MarkAnswered(ctx context.Context, contentHash string, correct bool, answerTimeSeconds float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE question_history SET
			times_answered_correctly = times_answered_correctly + CASE WHEN $2 THEN 1 ELSE 0 END,
			average_answer_time_seconds = CASE
				WHEN $2 THEN (average_answer_time_seconds * times_answered_correctly + $3) / (times_answered_correctly + 1)
				ELSE average_answer_time_seconds
			END
		WHERE content_hash = $1
	`, contentHash, correct, answerTimeSeconds)
	if err != nil {
		return fmt.Errorf("failed to mark question answered: %w", err)
	}
	return nil
}

// IsRecentlyAsked reports whether the question was asked within the window.
func (r *HistoryRepo) IsRecentlyAsked(ctx context.Context, contentHash string, window time.Duration) (bool, error) {
	var recent bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM question_history
			WHERE content_hash = $1 AND last_asked > $2
		)
	`, contentHash, time.Now().Add(-window)).Scan(&recent)
	if err != nil {
		return false, fmt.Errorf("failed to check question history: %w", err)
	}
	return recent, nil
}
