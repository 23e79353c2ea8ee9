package question

import (
	"math/rand"
	"sync"

	"github.com/mansionnet/quizbot/internal/domain"
)

// Categories the Question Source understands, grouped by difficulty. The
// grouping drives the prompt: harder questions come from denser subjects.
var categoriesByDifficulty = map[domain.Difficulty][]string{
	domain.Easy:   {"general", "geography", "film", "music"},
	domain.Medium: {"history", "biology", "pop_science"},
	domain.Hard:   {"science"},
}

// Pick is one category/difficulty selection.
type Pick struct {
	Category   string
	Difficulty domain.Difficulty
}

// Picker selects categories pseudo-randomly weighted by the configured
// difficulty distribution. Seedable for deterministic tests.
type Picker struct {
	mu      sync.Mutex
	rng     *rand.Rand
	weights []weightedDifficulty
	total   float64
}

type weightedDifficulty struct {
	difficulty domain.Difficulty
	weight     float64
}

// NewPicker builds a picker from difficulty weights keyed "easy", "medium",
// "hard". Weights need not sum to one. Missing keys get zero weight.
func NewPicker(weights map[string]float64, seed int64) *Picker {
	p := &Picker{rng: rand.New(rand.NewSource(seed))}
	for _, entry := range []struct {
		name       string
		difficulty domain.Difficulty
	}{
		{"easy", domain.Easy},
		{"medium", domain.Medium},
		{"hard", domain.Hard},
	} {
		w := weights[entry.name]
		if w <= 0 {
			continue
		}
		p.weights = append(p.weights, weightedDifficulty{entry.difficulty, w})
		p.total += w
	}
	if len(p.weights) == 0 {
		p.weights = []weightedDifficulty{{domain.Easy, 1}}
		p.total = 1
	}
	return p
}

// Preferred resolves an explicit category name, or a difficulty name to a
// random category of that tier. Unknown names report false and leave the
// choice to the weighted picker.
func (p *Picker) Preferred(name string) (Pick, bool) {
	for difficulty, categories := range categoriesByDifficulty {
		for _, c := range categories {
			if c == name {
				return Pick{Category: c, Difficulty: difficulty}, true
			}
		}
	}
	for difficulty, categories := range categoriesByDifficulty {
		if difficulty.String() == name {
			p.mu.Lock()
			c := categories[p.rng.Intn(len(categories))]
			p.mu.Unlock()
			return Pick{Category: c, Difficulty: difficulty}, true
		}
	}
	return Pick{}, false
}

// Next returns the next weighted pick.
func (p *Picker) Next() Pick {
	p.mu.Lock()
	defer p.mu.Unlock()

	difficulty := p.weights[len(p.weights)-1].difficulty
	roll := p.rng.Float64() * p.total
	for _, w := range p.weights {
		if roll < w.weight {
			difficulty = w.difficulty
			break
		}
		roll -= w.weight
	}

	categories := categoriesByDifficulty[difficulty]
	return Pick{
		Category:   categories[p.rng.Intn(len(categories))],
		Difficulty: difficulty,
	}
}
