package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/hintbot/internal/config"
)

// APIBackend sends prompts straight to the Anthropic API. Its output has no
// CLI envelope; the decoder handles both.
type APIBackend struct {
	llm       llms.Model
	modelName string
	maxTokens int
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewAPIBackend creates an Anthropic-backed invoker from runner config.
func NewAPIBackend(cfg config.RunnerConfig, logger zerolog.Logger) (*APIBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api backend requires runner.api_key")
	}
	model, err := anthropic.New(
		anthropic.WithToken(cfg.APIKey),
		anthropic.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create anthropic client: %w", err)
	}
	return NewAPIBackendFromModel(model, cfg.Model, cfg.MaxTokens, cfg.Timeout, logger), nil
}

// NewAPIBackendFromModel wraps an existing langchaingo model.
func NewAPIBackendFromModel(model llms.Model, modelName string, maxTokens int, timeout time.Duration, logger zerolog.Logger) *APIBackend {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIBackend{
		llm:       model,
		modelName: modelName,
		maxTokens: maxTokens,
		timeout:   timeout,
		logger:    logger,
	}
}

// Invoke sends prompt as a single human message and returns the reply text.
func (b *APIBackend) Invoke(ctx context.Context, prompt string) (string, error) {
	log := b.logger.With().
		Str("invocation_id", uuid.NewString()).
		Str("model", b.modelName).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var opts []llms.CallOption
	if b.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(b.maxTokens))
	}

	start := time.Now()
	log.Info().Int("prompt_chars", len(prompt)).Msg("calling model api")

	out, err := llms.GenerateFromSinglePrompt(ctx, b.llm, prompt, opts...)
	duration := time.Since(start)
	if err != nil {
		kind := KindBackend
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			kind = KindTimeout
		case ctx.Err() != nil:
			kind = KindCanceled
		}
		log.Error().Err(err).Str("kind", string(kind)).Dur("duration", duration).Msg("model api call failed")
		return "", &RunError{Kind: kind, ExitCode: -1, Err: err}
	}

	log.Info().Dur("duration", duration).Int("output_chars", len(out)).Msg("model api call finished")
	return out, nil
}
