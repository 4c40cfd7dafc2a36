package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retries with exponential backoff.
type Config struct {
	MaxRetries int           `json:"max_retries" koanf:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" koanf:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" koanf:"max_delay"`
	Multiplier float64       `json:"multiplier" koanf:"multiplier"`
	Jitter     bool          `json:"jitter" koanf:"jitter"` // up to 10% either way
}

// Result describes how a retried operation went.
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
	RetryReasons  []string      `json:"retry_reasons"`
}

// DefaultConfig is used for Discord REST calls such as command registration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// GatewayConfig is used when opening the Discord gateway connection at startup.
func GatewayConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
		Multiplier: 2.5,
		Jitter:     true,
	}
}

// Do runs operation until it succeeds, retries run out or ctx is done.
// Errors that IsRetryable rejects end the loop immediately.
func Do(ctx context.Context, cfg Config, name string, operation func() error, logger zerolog.Logger) Result {
	start := time.Now()
	result := Result{RetryReasons: make([]string, 0)}
	log := logger.With().Str("operation", name).Logger()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		err := operation()
		if err == nil {
			result.Success = true
			result.TotalDuration = time.Since(start)
			if attempt > 0 {
				log.Info().
					Int("retries", attempt).
					Dur("total_duration", result.TotalDuration).
					Msg("operation succeeded after retry")
			}
			return result
		}

		result.LastError = err
		result.RetryReasons = append(result.RetryReasons, err.Error())

		if attempt >= cfg.MaxRetries || !IsRetryable(err) {
			result.TotalDuration = time.Since(start)
			log.Error().Err(err).
				Int("attempts", result.Attempts).
				Dur("total_duration", result.TotalDuration).
				Msg("operation failed")
			return result
		}

		if ctx.Err() != nil {
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		}

		delay := calculateDelay(cfg, attempt)
		log.Warn().Err(err).
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Dur("delay", delay).
			Msg("operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.LastError = ctx.Err()
			result.TotalDuration = time.Since(start)
			return result
		case <-timer.C:
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// calculateDelay returns baseDelay * multiplier^attempt capped at MaxDelay.
func calculateDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}

var retryableErrors = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"429",
	"500",
	"502",
	"503",
	"504",
	"no such host",
	"network unreachable",
	"broken pipe",
	"eof",
	"websocket",
}

// Gateway close codes that no amount of reconnecting will fix.
var permanentErrors = []string{
	"authentication failed",
	"disallowed intent",
	"4004",
	"4014",
}

// IsRetryable reports whether err looks like a transient network or
// gateway failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range permanentErrors {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range retryableErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
