package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansionnet/quizbot/internal/scoring"
)

func validConfig() *Config {
	return &Config{
		IRCServer:           "irc.example.com",
		DatabaseURL:         "postgres://localhost/quizbot",
		RedisURL:            "redis://localhost:6379",
		MistralAPIKey:       "key",
		QuestionsPerGame:    10,
		BasePointsMin:       1,
		BasePointsMax:       10,
		StreakTiers:         "3:1.5,5:2.0,7:2.5",
		SpeedTiers:          "5s:1.5,3s:2.0",
		GenerationAttempts:  3,
		RateBucketCapacity:  5,
		RateRefillPerSecond: 0.5,
		CategoryWeights:     "easy=0.6,medium=0.3,hard=0.1",
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, validate(cfg))

	missing := validConfig()
	missing.DatabaseURL = ""
	err := validate(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"base min zero", func(c *Config) { c.BasePointsMin = 0 }, "BASE_POINTS_MIN"},
		{"max below min", func(c *Config) { c.BasePointsMax = 0 }, "BASE_POINTS_MAX"},
		{"no questions", func(c *Config) { c.QuestionsPerGame = 0 }, "QUESTIONS_PER_GAME"},
		{"no attempts", func(c *Config) { c.GenerationAttempts = 0 }, "GENERATION_ATTEMPTS"},
		{"zero refill", func(c *Config) { c.RateRefillPerSecond = 0 }, "RATE_REFILL_PER_SECOND"},
		{"bad streak tier", func(c *Config) { c.StreakTiers = "three:1.5" }, "STREAK_TIERS"},
		{"bad weights", func(c *Config) { c.CategoryWeights = "impossible=1" }, "CATEGORY_WEIGHTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScoringConfig(t *testing.T) {
	cfg := validConfig()
	got, err := cfg.ScoringConfig()
	require.NoError(t, err)

	assert.Equal(t, 1, got.BasePointsMin)
	assert.Equal(t, 10, got.BasePointsMax)
	assert.Equal(t, []scoring.StreakTier{
		{Streak: 3, Multiplier: 1.5},
		{Streak: 5, Multiplier: 2.0},
		{Streak: 7, Multiplier: 2.5},
	}, got.StreakTiers)
	assert.Equal(t, []scoring.SpeedTier{
		{Remaining: 5 * time.Second, Multiplier: 1.5},
		{Remaining: 3 * time.Second, Multiplier: 2.0},
	}, got.SpeedTiers)
}

func TestParsedCategoryWeights(t *testing.T) {
	cfg := validConfig()
	got, err := cfg.ParsedCategoryWeights()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"easy": 0.6, "medium": 0.3, "hard": 0.1}, got)
}
