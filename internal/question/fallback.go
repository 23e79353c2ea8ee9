package question

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/mansionnet/quizbot/internal/domain"
)

// fallbackSet is the built-in question pool used when generation is
// unavailable. Kept small and timeless so it never needs regeneration.
var fallbackSet = []*domain.Question{
	fallback("Which chemical element has the symbol 'Au'?", "gold", "science", domain.Hard,
		"The symbol Au comes from the Latin word for gold, 'aurum'."),
	fallback("What is the capital of France?", "Paris", "geography", domain.Easy,
		"Paris was founded in the 3rd century BC by a Celtic tribe called the Parisii."),
	fallback("Which planet is known as the Red Planet?", "Mars", "science", domain.Hard,
		"Iron oxide dust gives Mars its reddish appearance."),
	fallback("Which Italian artist painted the Sistine Chapel ceiling?", "Michelangelo", "history", domain.Medium,
		"Michelangelo painted it standing on scaffolding, not lying down as legend has it."),
	fallback("What is the largest ocean on Earth?", "Pacific Ocean", "geography", domain.Easy,
		"The Pacific covers about a third of the planet's surface.", "pacific", "the pacific"),
	fallback("Which country gifted the Statue of Liberty to the United States?", "France", "history", domain.Medium,
		"It was shipped across the Atlantic in 350 pieces packed into 214 crates."),
	fallback("What is the longest river in South America?", "Amazon", "geography", domain.Easy,
		"The Amazon discharges more water than the next seven largest rivers combined.", "amazon river", "the amazon"),
	fallback("Who wrote the play Romeo and Juliet?", "William Shakespeare", "general", domain.Easy,
		"The play was likely first performed in 1597.", "shakespeare"),
	fallback("Which gas do plants primarily absorb for photosynthesis?", "carbon dioxide", "biology", domain.Medium,
		"A single large tree can absorb around 22 kilograms of it per year.", "co2"),
	fallback("Which composer wrote the Ninth Symphony while almost completely deaf?", "Beethoven", "music", domain.Easy,
		"At its premiere he had to be turned around to see the audience applauding.", "ludwig van beethoven"),
	fallback("Which organ in the human body produces insulin?", "pancreas", "biology", domain.Medium,
		"Insulin was first isolated in 1921, transforming diabetes treatment."),
	fallback("What is the smallest prime number?", "two", "science", domain.Hard,
		"It is also the only even prime number.", "2"),
	fallback("Which movie features a computer named HAL 9000?", "2001", "film", domain.Easy,
		"HAL's name is often noted as being one letter off from IBM.", "2001 a space odyssey", "a space odyssey"),
	fallback("Which instrument has 88 keys in its standard form?", "piano", "music", domain.Easy,
		"The modern layout of 52 white and 36 black keys settled in the late 1880s."),
	fallback("What is the tallest mountain above sea level?", "Mount Everest", "geography", domain.Easy,
		"It grows roughly four millimetres taller every year.", "everest"),
	fallback("Which scientist proposed the three laws of motion?", "Isaac Newton", "science", domain.Hard,
		"He published them in the Principia in 1687.", "newton"),
}

func fallback(text, answer, category string, difficulty domain.Difficulty, fact string, variants ...string) *domain.Question {
	return &domain.Question{
		Text:             text,
		Answer:           answer,
		AcceptedVariants: variants,
		Category:         category,
		Difficulty:       difficulty,
		Fact:             fact,
		ContentHash:      domain.HashQuestion(text, answer),
	}
}

// drawFallback picks uniformly from the built-in set, skipping excluded
// hashes. Returns nil when every fallback is excluded.
func drawFallback(rng *rand.Rand, exclude map[string]struct{}) *domain.Question {
	candidates := make([]*domain.Question, 0, len(fallbackSet))
	for _, q := range fallbackSet {
		if _, used := exclude[q.ContentHash]; !used {
			candidates = append(candidates, q)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	chosen := *candidates[rng.Intn(len(candidates))]
	chosen.ID = uuid.New()
	return &chosen
}
