package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mansionnet/quizbot/internal/domain"
)

const questionCacheKey = "quizbot:question_cache"

// maxCached caps the buffer so a burst of over-generation cannot grow the
// list without bound.
const maxCached = 100

// QuestionCache implements domain.QuestionCache on a Redis list. Questions are
// serialized as JSON; the list acts as a FIFO buffer of pre-generated
// questions shared by all channels.
type QuestionCache struct {
	client *Client
}

func NewQuestionCache(client *Client) *QuestionCache {
	return &QuestionCache{client: client}
}

func (c *QuestionCache) Pop(ctx context.Context) (*domain.Question, error) {
	raw, err := c.client.rdb.LPop(ctx, questionCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop cached question: %w", err)
	}

	var q domain.Question
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		// A corrupt entry is dropped, not returned.
		return nil, fmt.Errorf("failed to decode cached question: %w", err)
	}
	return &q, nil
}

func (c *QuestionCache) Push(ctx context.Context, questions ...*domain.Question) error {
	if len(questions) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("failed to encode question: %w", err)
		}
		values = append(values, raw)
	}

	pipe := c.client.rdb.TxPipeline()
	pipe.RPush(ctx, questionCacheKey, values...)
	pipe.LTrim(ctx, questionCacheKey, 0, maxCached-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to push questions: %w", err)
	}
	return nil
}
