package domain

import (
	"context"
	"time"
)

// PlayerRecord is the persisted aggregate statistics for one player. The
// engine only ever increments it; records are never deleted.
type PlayerRecord struct {
	Username               string
	TotalScore             int
	GamesPlayed            int
	CorrectAnswers         int
	FastestAnswerSeconds   float64
	LongestStreak          int
	HighestSingleGameScore int
	LastPlayed             time.Time
}

// PlayerStore abstracts player statistics persistence. Aggregate updates must
// be atomic per player row so concurrent channels cannot corrupt totals.
type PlayerStore interface {
	GetPlayer(ctx context.Context, username string) (*PlayerRecord, error)
	UpsertPlayerAfterAnswer(ctx context.Context, username string, pointsAwarded int, answerTimeSeconds float64, streakAfter int) error
	UpsertPlayerAfterGame(ctx context.Context, username string, finalGameScore int) error
	TopPlayers(ctx context.Context, limit int) ([]PlayerRecord, error)
}
