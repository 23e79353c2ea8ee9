// Package answer implements the answer judge: normalization and fuzzy
// comparison of a candidate answer against a question's accepted answers.
// The judge is a pure predicate with no side effects.
package answer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mansionnet/quizbot/internal/domain"
)

// stripDiacritics decomposes to NFD, drops combining marks, recomposes.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var leadingArticles = []string{"the ", "a ", "an "}

// Config tunes the fuzzy-matching heuristics. Zero value is unusable; use
// DefaultConfig.
type Config struct {
	// TokenThreshold is the minimum token count of a canonical answer before
	// leading/trailing token subsequences are accepted ("da Vinci" for
	// "Leonardo da Vinci").
	TokenThreshold int
	// TypoTolerance is the edit-distance budget as a fraction of answer
	// length, clamped to at least one character. Single-character answers are
	// always exact-match only.
	TypoTolerance float64
}

func DefaultConfig() Config {
	return Config{
		TokenThreshold: 2,
		TypoTolerance:  0.2,
	}
}

// Judge decides whether candidate answers are correct.
type Judge struct {
	cfg      Config
	synonyms map[string][]string
}

func NewJudge(cfg Config) *Judge {
	return &Judge{cfg: cfg, synonyms: defaultSynonyms}
}

// Normalize runs the deterministic normalization pipeline: lower-case,
// diacritic strip, punctuation to spaces, whitespace collapse, leading
// article strip.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if folded, _, err := transform.String(stripDiacritics, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")

	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			s = s[len(article):]
			break
		}
	}
	return s
}

// Correct reports whether candidate matches the question's canonical answer
// or any accepted variant after normalization and fuzzy comparison.
func (j *Judge) Correct(candidate string, q *domain.Question) bool {
	cand := Normalize(candidate)
	if cand == "" {
		return false
	}

	accepted := j.acceptedSet(q)
	for _, want := range accepted {
		if cand == want {
			return true
		}
	}

	if folded := foldPlural(cand); folded != cand {
		for _, want := range accepted {
			if folded == want {
				return true
			}
		}
	}
	for _, want := range accepted {
		if folded := foldPlural(want); folded != want && folded == cand {
			return true
		}
	}

	canonical := Normalize(q.Answer)
	if j.tokenRunMatch(cand, canonical) {
		return true
	}

	for _, want := range accepted {
		if j.withinTypoTolerance(cand, want) {
			return true
		}
	}
	return false
}

// acceptedSet returns all normalized strings considered a correct answer:
// the canonical answer, the question's explicit variants, and the built-in
// synonym table in both directions.
func (j *Judge) acceptedSet(q *domain.Question) []string {
	canonical := Normalize(q.Answer)
	seen := map[string]struct{}{canonical: {}}
	out := []string{canonical}

	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, v := range q.AcceptedVariants {
		add(Normalize(v))
	}
	for _, syn := range j.synonyms[canonical] {
		add(syn)
	}
	// Reverse direction: the canonical answer may itself be listed as a
	// variant of a synonym group ("usa" asked, "united states" answered).
	for main, syns := range j.synonyms {
		for _, syn := range syns {
			if syn == canonical {
				add(main)
				for _, sibling := range syns {
					add(sibling)
				}
			}
		}
	}
	return out
}

// tokenRunMatch accepts a leading or trailing contiguous token run of a long
// canonical answer, so "da vinci" matches "leonardo da vinci".
func (j *Judge) tokenRunMatch(cand, canonical string) bool {
	tokens := strings.Fields(canonical)
	if len(tokens) <= j.cfg.TokenThreshold {
		return false
	}
	if len(cand) < 3 {
		return false
	}
	for n := 1; n < len(tokens); n++ {
		if cand == strings.Join(tokens[:n], " ") {
			return true
		}
		if cand == strings.Join(tokens[len(tokens)-n:], " ") {
			return true
		}
	}
	return false
}

// withinTypoTolerance accepts small edit distances scaled by answer length.
// Ambiguous single-character answers get no tolerance at all, and dropping
// whole tokens is never a typo: "leonardo vinci" stays wrong even though its
// edit distance to "leonardo da vinci" fits the budget.
func (j *Judge) withinTypoTolerance(cand, want string) bool {
	if len([]rune(want)) <= 1 {
		return false
	}
	if isTokenDeletion(cand, want) {
		return false
	}
	budget := int(float64(len([]rune(want))) * j.cfg.TypoTolerance)
	if budget < 1 {
		budget = 1
	}
	if abs(len([]rune(cand))-len([]rune(want))) > budget {
		return false
	}
	return levenshtein(cand, want) <= budget
}

// isTokenDeletion reports whether cand is want with one or more whole tokens
// removed. Those candidates belong to tokenRunMatch, which only accepts
// contiguous runs.
func isTokenDeletion(cand, want string) bool {
	candTokens := strings.Fields(cand)
	wantTokens := strings.Fields(want)
	if len(candTokens) == 0 || len(candTokens) >= len(wantTokens) {
		return false
	}
	i := 0
	for _, tok := range wantTokens {
		if i < len(candTokens) && candTokens[i] == tok {
			i++
		}
	}
	return i == len(candTokens)
}

func foldPlural(s string) string {
	if strings.HasSuffix(s, "es") && len(s) > 3 {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "s") && len(s) > 2 {
		return s[:len(s)-1]
	}
	return s
}

// levenshtein computes edit distance over runes with two rolling rows.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
