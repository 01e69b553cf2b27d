package command

import (
	"math"
	"math/rand"
	"time"
)

type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// NextBackoffDelay is the wait before retry number attempt, counting from 1.
// A nil rng jitters from the math/rand package source.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		r := rand.Float64
		if rng != nil {
			r = rng.Float64
		}
		f := 0.5 + r()
		delay = delay * f
	}
	return time.Duration(delay)
}
