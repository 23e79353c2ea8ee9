package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/mansionnet/quizbot/internal/scoring"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	IRCServer   string   `env:"IRC_SERVER"`
	IRCPort     int      `env:"IRC_PORT" default:"6697"`
	IRCNick     string   `env:"IRC_NICK" default:"QuizBot"`
	IRCChannels []string `env:"IRC_CHANNELS" default:"#quiz"`
	IRCAdmins   []string `env:"IRC_ADMINS"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	MistralAPIKey string `env:"MISTRAL_API_KEY"`
	MistralModel  string `env:"MISTRAL_MODEL" default:"mistral-tiny"`

	HTTPPort string `env:"HTTP_PORT" default:"8080"`

	// Game settings
	QuestionTimeout       time.Duration `env:"QUESTION_TIMEOUT" default:"30s"`
	QuestionDelay         time.Duration `env:"QUESTION_DELAY" default:"2s"`
	MinAnswerGuard        time.Duration `env:"MIN_ANSWER_GUARD" default:"500ms"`
	QuestionsPerGame      int           `env:"QUESTIONS_PER_GAME" default:"10"`
	ResetStreaksOnTimeout bool          `env:"RESET_STREAKS_ON_TIMEOUT" default:"false"`

	// Scoring policy
	BasePointsMin int    `env:"BASE_POINTS_MIN" default:"1"`
	BasePointsMax int    `env:"BASE_POINTS_MAX" default:"10"`
	StreakTiers   string `env:"STREAK_TIERS" default:"3:1.5,5:2.0,7:2.5"`
	SpeedTiers    string `env:"SPEED_TIERS" default:"5s:1.5,3s:2.0"`

	// Question pipeline
	GenerationAttempts  int           `env:"GENERATION_ATTEMPTS" default:"3"`
	GenerationBackoff   time.Duration `env:"GENERATION_BACKOFF" default:"2s"`
	RateBucketCapacity  int           `env:"RATE_BUCKET_CAPACITY" default:"5"`
	RateRefillPerSecond float64       `env:"RATE_REFILL_PER_SECOND" default:"0.5"`
	RateWaitMax         time.Duration `env:"RATE_WAIT_MAX" default:"10s"`
	CategoryWeights     string        `env:"CATEGORY_WEIGHTS" default:"easy=0.6,medium=0.3,hard=0.1"`
	HistoryRetention    time.Duration `env:"HISTORY_RETENTION" default:"720h"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"IRC_SERVER":      cfg.IRCServer,
		"DATABASE_URL":    cfg.DatabaseURL,
		"REDIS_URL":       cfg.RedisURL,
		"MISTRAL_API_KEY": cfg.MistralAPIKey,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.BasePointsMin < 1 {
		return fmt.Errorf("BASE_POINTS_MIN must be at least 1, got %d", cfg.BasePointsMin)
	}
	if cfg.BasePointsMax < cfg.BasePointsMin {
		return fmt.Errorf("BASE_POINTS_MAX (%d) must not be below BASE_POINTS_MIN (%d)", cfg.BasePointsMax, cfg.BasePointsMin)
	}
	if cfg.QuestionsPerGame < 1 {
		return fmt.Errorf("QUESTIONS_PER_GAME must be at least 1, got %d", cfg.QuestionsPerGame)
	}
	if cfg.GenerationAttempts < 1 {
		return fmt.Errorf("GENERATION_ATTEMPTS must be at least 1, got %d", cfg.GenerationAttempts)
	}
	if cfg.RateBucketCapacity < 1 {
		return fmt.Errorf("RATE_BUCKET_CAPACITY must be at least 1, got %d", cfg.RateBucketCapacity)
	}
	if cfg.RateRefillPerSecond <= 0 {
		return fmt.Errorf("RATE_REFILL_PER_SECOND must be positive, got %v", cfg.RateRefillPerSecond)
	}

	if _, err := cfg.ScoringConfig(); err != nil {
		return err
	}
	if _, err := cfg.ParsedCategoryWeights(); err != nil {
		return err
	}
	return nil
}

// ScoringConfig parses the scoring policy options into a scoring.Config.
func (cfg *Config) ScoringConfig() (scoring.Config, error) {
	out := scoring.Config{
		BasePointsMin: cfg.BasePointsMin,
		BasePointsMax: cfg.BasePointsMax,
	}

	for _, part := range splitList(cfg.StreakTiers) {
		streakStr, multStr, ok := strings.Cut(part, ":")
		if !ok {
			return out, fmt.Errorf("STREAK_TIERS entry %q must look like 3:1.5", part)
		}
		streak, err := strconv.Atoi(streakStr)
		if err != nil {
			return out, fmt.Errorf("STREAK_TIERS entry %q: %w", part, err)
		}
		mult, err := strconv.ParseFloat(multStr, 64)
		if err != nil {
			return out, fmt.Errorf("STREAK_TIERS entry %q: %w", part, err)
		}
		out.StreakTiers = append(out.StreakTiers, scoring.StreakTier{Streak: streak, Multiplier: mult})
	}

	for _, part := range splitList(cfg.SpeedTiers) {
		remainingStr, multStr, ok := strings.Cut(part, ":")
		if !ok {
			return out, fmt.Errorf("SPEED_TIERS entry %q must look like 5s:1.5", part)
		}
		remaining, err := time.ParseDuration(remainingStr)
		if err != nil {
			return out, fmt.Errorf("SPEED_TIERS entry %q: %w", part, err)
		}
		mult, err := strconv.ParseFloat(multStr, 64)
		if err != nil {
			return out, fmt.Errorf("SPEED_TIERS entry %q: %w", part, err)
		}
		out.SpeedTiers = append(out.SpeedTiers, scoring.SpeedTier{Remaining: remaining, Multiplier: mult})
	}

	return out, nil
}

// ParsedCategoryWeights parses CATEGORY_WEIGHTS into difficulty weights.
// Weights need not sum to one; the picker normalizes.
func (cfg *Config) ParsedCategoryWeights() (map[string]float64, error) {
	out := make(map[string]float64)
	for _, part := range splitList(cfg.CategoryWeights) {
		name, weightStr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("CATEGORY_WEIGHTS entry %q must look like easy=0.6", part)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "easy", "medium", "hard":
		default:
			return nil, fmt.Errorf("CATEGORY_WEIGHTS has unknown difficulty %q", name)
		}
		weight, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
		if err != nil {
			return nil, fmt.Errorf("CATEGORY_WEIGHTS entry %q: %w", part, err)
		}
		if weight < 0 {
			return nil, fmt.Errorf("CATEGORY_WEIGHTS entry %q must not be negative", part)
		}
		out[name] = weight
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("CATEGORY_WEIGHTS must not be empty")
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
