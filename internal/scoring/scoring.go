// Package scoring computes the points awarded for a correct answer from
// timing and streak state. Pure functions; callers persist the results.
package scoring

import (
	"math"
	"time"
)

// StreakTier awards Multiplier once a player's consecutive-correct count
// reaches Streak.
type StreakTier struct {
	Streak     int
	Multiplier float64
}

// SpeedTier awards Multiplier when at least Remaining of the answer window
// was left when the answer arrived.
type SpeedTier struct {
	Remaining  time.Duration
	Multiplier float64
}

// Config holds the scoring policy. Tiers may be listed in any order; the
// highest tier met wins.
type Config struct {
	BasePointsMin int
	BasePointsMax int
	StreakTiers   []StreakTier
	SpeedTiers    []SpeedTier
}

func DefaultConfig() Config {
	return Config{
		BasePointsMin: 1,
		BasePointsMax: 10,
		StreakTiers: []StreakTier{
			{Streak: 3, Multiplier: 1.5},
			{Streak: 5, Multiplier: 2.0},
			{Streak: 7, Multiplier: 2.5},
		},
		SpeedTiers: []SpeedTier{
			{Remaining: 5 * time.Second, Multiplier: 1.5},
			{Remaining: 3 * time.Second, Multiplier: 2.0},
		},
	}
}

// Result is the breakdown of one scoring event.
type Result struct {
	Points     int
	Base       int
	StreakMult float64
	SpeedMult  float64
}

// TotalMult is the composed multiplier applied to the base points.
func (r Result) TotalMult() float64 {
	return r.StreakMult * r.SpeedMult
}

// Score computes the award for an answer with timeRemaining left of a window
// seconds answer window, given the player's consecutive-correct count after
// this answer. Base points interpolate linearly between min (last instant)
// and max (instant answer); streak and speed multipliers compose
// multiplicatively; the final award is floored and never below one.
func Score(cfg Config, timeRemaining, window time.Duration, streakAfter int) Result {
	base := basePoints(cfg, timeRemaining, window)
	streakMult := tierMultiplier(streakAfter, cfg.StreakTiers)
	speedMult := speedMultiplier(timeRemaining, cfg.SpeedTiers)

	points := int(math.Floor(float64(base) * streakMult * speedMult))
	if points < 1 {
		points = 1
	}
	return Result{
		Points:     points,
		Base:       base,
		StreakMult: streakMult,
		SpeedMult:  speedMult,
	}
}

func basePoints(cfg Config, timeRemaining, window time.Duration) int {
	if window <= 0 {
		return cfg.BasePointsMin
	}
	frac := timeRemaining.Seconds() / window.Seconds()
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	base := int(math.Round(float64(cfg.BasePointsMin) + float64(cfg.BasePointsMax-cfg.BasePointsMin)*frac))
	if base < cfg.BasePointsMin {
		base = cfg.BasePointsMin
	}
	if base > cfg.BasePointsMax {
		base = cfg.BasePointsMax
	}
	return base
}

func tierMultiplier(streak int, tiers []StreakTier) float64 {
	mult := 1.0
	best := -1
	for _, tier := range tiers {
		if streak >= tier.Streak && tier.Streak > best {
			best = tier.Streak
			mult = tier.Multiplier
		}
	}
	return mult
}

func speedMultiplier(remaining time.Duration, tiers []SpeedTier) float64 {
	mult := 1.0
	var best time.Duration = -1
	for _, tier := range tiers {
		if remaining >= tier.Remaining && tier.Remaining > best {
			best = tier.Remaining
			mult = tier.Multiplier
		}
	}
	return mult
}
