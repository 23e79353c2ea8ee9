package question

import (
	"fmt"
	"strings"

	"github.com/mansionnet/quizbot/internal/domain"
)

const (
	minQuestionLength = 15
	maxAnswerWords    = 3
	minAnswerLength   = 2
)

// vaguePatterns indicate questions with multiple acceptable answers.
var vaguePatterns = []string{
	"name a", "name any", "give an example", "give me an example",
	"what are some", "what could", "which of these", "such as",
	"for example", "one of the",
}

var questionWords = []string{"what", "who", "where", "when", "which", "how", "why"}

// Validate rejects generated questions that would make for a bad round:
// empty or ambiguous answers, self-answering questions, vague phrasing.
func Validate(q *domain.Question) error {
	text := strings.TrimSpace(q.Text)
	answer := strings.TrimSpace(q.Answer)

	if text == "" {
		return fmt.Errorf("question text is empty")
	}
	if answer == "" {
		return fmt.Errorf("answer is empty")
	}
	if len(text) < minQuestionLength {
		return fmt.Errorf("question too short: %q", text)
	}
	if !strings.HasSuffix(text, "?") {
		return fmt.Errorf("question does not end with a question mark: %q", text)
	}

	lowerText := strings.ToLower(text)
	lowerAnswer := strings.ToLower(answer)

	hasQuestionWord := false
	for _, w := range questionWords {
		if strings.HasPrefix(lowerText, w) || strings.Contains(lowerText, " "+w+" ") {
			hasQuestionWord = true
			break
		}
	}
	if !hasQuestionWord {
		return fmt.Errorf("not phrased as a question: %q", text)
	}

	answerWords := strings.Fields(lowerAnswer)
	if len(answerWords) > maxAnswerWords {
		return fmt.Errorf("answer too long (%d words): %q", len(answerWords), answer)
	}
	if len(lowerAnswer) < minAnswerLength {
		return fmt.Errorf("answer too short: %q", answer)
	}

	if strings.Contains(lowerText, lowerAnswer) {
		return fmt.Errorf("question contains its own answer")
	}
	for _, word := range answerWords {
		// Short words are too common to count as giveaways.
		if len(word) > 3 && strings.Contains(lowerText, word) {
			return fmt.Errorf("question contains answer word %q", word)
		}
	}

	for _, pattern := range vaguePatterns {
		if strings.Contains(lowerText, pattern) {
			return fmt.Errorf("vague phrasing %q", pattern)
		}
	}

	return nil
}
