package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Question is a single trivia question. Immutable once issued to a session.
type Question struct {
	ID               uuid.UUID
	Text             string
	Answer           string
	AcceptedVariants []string
	Category         string
	Difficulty       Difficulty
	Fact             string
	ContentHash      string
}

type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

// HashQuestion computes the stable fingerprint used to de-duplicate questions
// against history. It is insensitive to case and surrounding whitespace so a
// regenerated question with trivial formatting changes still collides.
func HashQuestion(text, answer string) string {
	key := strings.ToLower(strings.TrimSpace(text)) + ":" + strings.ToLower(strings.TrimSpace(answer))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// QuestionHistoryEntry is the persisted record of a question having been asked.
type QuestionHistoryEntry struct {
	ContentHash              string
	Text                     string
	Answer                   string
	Category                 string
	TimesAsked               int
	TimesAnsweredCorrectly   int
	LastAsked                time.Time
	AverageAnswerTimeSeconds float64
}

// QuestionSource generates fresh questions for a category. Implementations
// talk to an external AI service and may fail with ErrRateLimited,
// ErrInvalidResponse or ErrSourceUnavailable.
type QuestionSource interface {
	Generate(ctx context.Context, category string, excludeAnswers []string) ([]*Question, error)
}

// QuestionCache buffers surplus generated questions between games so a burst
// of generation can serve several rounds.
type QuestionCache interface {
	Pop(ctx context.Context) (*Question, error)
	Push(ctx context.Context, questions ...*Question) error
}

// HistoryStore persists question usage so the pipeline can bias against
// repetition across games and channels.
type HistoryStore interface {
	RecordQuestionHistory(ctx context.Context, entry QuestionHistoryEntry) error
	MarkAnswered(ctx context.Context, contentHash string, correct bool, answerTimeSeconds float64) error
	IsRecentlyAsked(ctx context.Context, contentHash string, window time.Duration) (bool, error)
}
