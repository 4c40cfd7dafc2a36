package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hintbot/internal/logging"
)

// Defaults applied when a CLIConfig field is zero.
const (
	DefaultTimeout        = 5 * time.Minute
	DefaultKillGrace      = 10 * time.Second
	DefaultMaxOutputBytes = 1 << 20
)

// CLIConfig describes how to run the model CLI. The prompt is appended as
// the last argument.
type CLIConfig struct {
	Binary         string
	Args           []string
	Timeout        time.Duration
	KillGrace      time.Duration
	MaxOutputBytes int
	Env            []string
}

// CLIRunner runs one subprocess per Invoke call.
type CLIRunner struct {
	cfg    CLIConfig
	logger zerolog.Logger
}

// NewCLIRunner creates a runner, filling zero fields with defaults.
func NewCLIRunner(cfg CLIConfig, logger zerolog.Logger) *CLIRunner {
	if cfg.Binary == "" {
		cfg.Binary = "claude"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = DefaultKillGrace
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &CLIRunner{cfg: cfg, logger: logger}
}

// Invoke runs the CLI with prompt and returns its stdout. On timeout the
// process gets SIGTERM, then is killed once KillGrace has passed.
func (r *CLIRunner) Invoke(ctx context.Context, prompt string) (string, error) {
	log := r.logger.With().
		Str("invocation_id", uuid.NewString()).
		Str("binary", r.cfg.Binary).
		Logger()

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancelTimeout()
	runCtx, cancel := context.WithCancelCause(timeoutCtx)
	defer cancel(nil)

	args := make([]string, 0, len(r.cfg.Args)+1)
	args = append(args, r.cfg.Args...)
	args = append(args, prompt)

	cmd := exec.CommandContext(runCtx, r.cfg.Binary, args...)
	cmd.Env = r.cfg.Env
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.cfg.KillGrace

	stdout := &boundedBuffer{limit: r.cfg.MaxOutputBytes, onOverflow: func() { cancel(ErrOutputLimit) }}
	stderr := &boundedBuffer{limit: r.cfg.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	log.Info().Int("prompt_chars", len(prompt)).Msg("starting model process")

	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("model process failed to start")
		return "", &RunError{Kind: KindSpawn, ExitCode: -1, Err: err}
	}

	waitErr := cmd.Wait()
	duration := time.Since(start)

	if runErr := classify(runCtx, timeoutCtx, waitErr, stdout, stderr); runErr != nil {
		log.Error().
			Err(runErr).
			Str("kind", string(runErr.Kind)).
			Int("exit_code", runErr.ExitCode).
			Dur("duration", duration).
			Msg("model process failed")
		return "", runErr
	}

	out := stdout.String()
	log.Info().
		Dur("duration", duration).
		Int("stdout_bytes", len(out)).
		Msg("model process finished")
	return out, nil
}

// classify maps the outcome of Wait onto a RunError. Context expiry wins
// over the exit status, which is just the signal that stopped the process.
// Only the invocation deadline is a timeout; a canceled caller context is
// reported as KindCanceled.
func classify(runCtx, timeoutCtx context.Context, waitErr error, stdout, stderr *boundedBuffer) *RunError {
	switch {
	case errors.Is(context.Cause(runCtx), ErrOutputLimit):
		return &RunError{Kind: KindOutputLimit, ExitCode: exitCode(waitErr), Stderr: excerpt(stderr, stdout)}
	case errors.Is(timeoutCtx.Err(), context.DeadlineExceeded):
		return &RunError{Kind: KindTimeout, ExitCode: exitCode(waitErr), Err: timeoutCtx.Err()}
	case timeoutCtx.Err() != nil:
		return &RunError{Kind: KindCanceled, ExitCode: exitCode(waitErr), Err: timeoutCtx.Err()}
	}

	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &RunError{Kind: KindNonZeroExit, ExitCode: exitErr.ExitCode(), Stderr: excerpt(stderr, stdout), Err: waitErr}
	}
	return &RunError{Kind: KindSpawn, ExitCode: -1, Err: waitErr}
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// excerpt prefers stderr and falls back to stdout, since the CLI reports
// some failures on stdout.
func excerpt(stderr, stdout *boundedBuffer) string {
	if s := logging.CompactExcerpt(stderr.String(), StderrExcerptLimit); s != "" {
		return s
	}
	return logging.CompactExcerpt(stdout.String(), StderrExcerptLimit)
}

// MinimalEnv builds the child environment: PATH, HOME, the API key when set,
// and any pass-through variables present in the current environment.
func MinimalEnv(apiKey string, passEnv []string) []string {
	env := make([]string, 0, 3+len(passEnv))
	for _, name := range []string{"PATH", "HOME"} {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	if apiKey != "" {
		env = append(env, "ANTHROPIC_API_KEY="+apiKey)
	} else if v, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
		env = append(env, "ANTHROPIC_API_KEY="+v)
	}
	for _, name := range passEnv {
		if name == "PATH" || name == "HOME" || name == "ANTHROPIC_API_KEY" {
			continue
		}
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// boundedBuffer keeps at most limit bytes. Writes past the limit are
// accepted and dropped so the child never sees a write error.
type boundedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int
	overflowed bool
	onOverflow func()
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.overflowed {
		return len(p), nil
	}
	if room := b.limit - b.buf.Len(); len(p) > room {
		b.buf.Write(p[:room])
		b.overflowed = true
		if b.onOverflow != nil {
			b.onOverflow()
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
