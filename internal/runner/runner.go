// Package runner invokes the language model for a single prompt, either via
// the claude CLI in a subprocess or directly over the Anthropic API.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hintbot/internal/config"
)

// Invoker turns one prompt into raw model output. Implementations hold no
// per-request state and are safe for concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Kind classifies a failed invocation.
type Kind string

const (
	KindSpawn       Kind = "spawn"
	KindTimeout     Kind = "timeout"
	KindNonZeroExit Kind = "nonzero_exit"
	KindOutputLimit Kind = "output_limit"
	KindBackend     Kind = "backend"
	KindCanceled    Kind = "canceled"
)

var (
	ErrSpawn       = errors.New("model process could not be started")
	ErrTimeout     = errors.New("model invocation timed out")
	ErrNonZeroExit = errors.New("model process exited with non-zero status")
	ErrOutputLimit = errors.New("model output exceeded size limit")
	ErrBackend     = errors.New("model backend request failed")
	ErrCanceled    = errors.New("model invocation canceled")
)

var kindSentinels = map[Kind]error{
	KindSpawn:       ErrSpawn,
	KindTimeout:     ErrTimeout,
	KindNonZeroExit: ErrNonZeroExit,
	KindOutputLimit: ErrOutputLimit,
	KindBackend:     ErrBackend,
	KindCanceled:    ErrCanceled,
}

// StderrExcerptLimit bounds the stderr text carried by a RunError.
const StderrExcerptLimit = 200

// RunError describes a failed invocation. Stderr is already truncated.
type RunError struct {
	Kind     Kind
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	msg := kindSentinels[e.Kind].Error()
	if e.Kind == KindNonZeroExit {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	if e.Err != nil && e.Kind != KindNonZeroExit {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RunError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// New builds the invoker selected by cfg.Backend.
func New(cfg config.RunnerConfig, logger zerolog.Logger) (Invoker, error) {
	switch cfg.Backend {
	case "", config.BackendCLI:
		return NewCLIRunner(CLIConfig{
			Binary:         cfg.Binary,
			Args:           cfg.Args,
			Timeout:        cfg.Timeout,
			KillGrace:      cfg.KillGrace,
			MaxOutputBytes: cfg.MaxOutputBytes,
			Env:            MinimalEnv(cfg.APIKey, cfg.PassEnv),
		}, logger), nil
	case config.BackendAPI:
		return NewAPIBackend(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported runner backend: %s", cfg.Backend)
	}
}
