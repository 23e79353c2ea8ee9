// Package mistral implements the question source backed by the Mistral
// chat-completions API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mansionnet/quizbot/internal/domain"
)

const defaultBaseURL = "https://api.mistral.ai"

// questionsPerRequest asks for a small batch so surplus questions can be
// cached for later rounds.
const questionsPerRequest = 3

type Client struct {
	apiKey  string
	model   string
	baseURL string // configurable for testing
	http    *http.Client
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "mistral-small-latest"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generatedQuestion struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Variants []string `json:"accepted_answers"`
	Fact     string   `json:"fun_fact"`
}

// Generate asks the model for a batch of questions in the given category.
// excludeAnswers lists recently used answers the model should avoid.
func (c *Client) Generate(ctx context.Context, category string, excludeAnswers []string) ([]*domain.Question, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(category, questionsPerRequest, excludeAnswers)},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request failed: %v: %w", err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v: %w", err, domain.ErrSourceUnavailable)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d: %s: %w", resp.StatusCode, truncate(respBody), domain.ErrSourceUnavailable)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %s: %w", resp.StatusCode, truncate(respBody), domain.ErrInvalidResponse)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v: %w", err, domain.ErrInvalidResponse)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", domain.ErrInvalidResponse)
	}

	questions, err := parseQuestions(result.Choices[0].Message.Content, category)
	if err != nil {
		return nil, err
	}

	slog.Debug("Generated questions", "category", category, "count", len(questions))
	return questions, nil
}

// parseQuestions extracts the JSON array from the model output. Models
// routinely wrap the array in prose or code fences, so only the outermost
// bracketed span is decoded.
func parseQuestions(content, category string) ([]*domain.Question, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array in model output: %w", domain.ErrInvalidResponse)
	}

	var raw []generatedQuestion
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode question array: %v: %w", err, domain.ErrInvalidResponse)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty question array: %w", domain.ErrInvalidResponse)
	}

	questions := make([]*domain.Question, 0, len(raw))
	for _, g := range raw {
		text := strings.TrimSpace(g.Question)
		answer := strings.TrimSpace(g.Answer)
		if text == "" || answer == "" {
			continue
		}
		questions = append(questions, &domain.Question{
			ID:               uuid.New(),
			Text:             text,
			Answer:           answer,
			AcceptedVariants: g.Variants,
			Category:         category,
			Fact:             strings.TrimSpace(g.Fact),
			ContentHash:      domain.HashQuestion(text, answer),
		})
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no usable questions in array of %d: %w", len(raw), domain.ErrInvalidResponse)
	}
	return questions, nil
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

const systemPrompt = `You are a trivia question writer for a fast-paced chat quiz. ` +
	`Write clear, unambiguous questions with short factual answers. ` +
	`Every answer must be at most three words. ` +
	`Respond with a JSON array only, no surrounding text.`

func userPrompt(category string, count int, excludeAnswers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d trivia questions in the category %q.\n", count, category)
	b.WriteString(`Each array element must be an object with keys "question", "answer", "accepted_answers" (list of alternative spellings) and "fun_fact" (one short sentence).` + "\n")
	b.WriteString("Questions must end with a question mark and must not contain their own answer.\n")
	if len(excludeAnswers) > 0 {
		fmt.Fprintf(&b, "Do not reuse any of these answers: %s.\n", strings.Join(excludeAnswers, ", "))
	}
	return b.String()
}
