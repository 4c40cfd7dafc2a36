// Package generation ties prompts, the model invoker and the output decoder
// into one call per user request.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/llm"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/prompts"
	"github.com/hintbot/internal/runner"
)

// Service runs the build prompt, invoke, decode pipeline. It holds no
// per-request state.
type Service struct {
	invoker runner.Invoker
	decoder *llm.Decoder
	logger  zerolog.Logger
}

// NewService creates a service.
func NewService(invoker runner.Invoker, decoder *llm.Decoder, logger zerolog.Logger) *Service {
	return &Service{invoker: invoker, decoder: decoder, logger: logger}
}

// Reply is the answer to a thread message. Exactly one field is set.
type Reply struct {
	Contents []llm.GeneratedContent
	Text     string
}

// Hint generates opts.Variants post pairs for a topic.
func (s *Service) Hint(ctx context.Context, topic string, opts prompts.Options) ([]llm.GeneratedContent, error) {
	opts = opts.Normalize()
	prompt := prompts.BuildGenerationPrompt(topic, opts)
	return s.content(ctx, "hint", prompt, opts.Variants,
		s.logger.With().Str("topic", logging.Excerpt(topic, 80)).Logger())
}

// Refine produces one updated post pair from a content thread.
func (s *Service) Refine(ctx context.Context, transcript conversation.Transcript) ([]llm.GeneratedContent, error) {
	return s.content(ctx, "refine", prompts.BuildRefinementPrompt(transcript), 1, s.logger)
}

// Talk answers the opening message of a /talk conversation.
func (s *Service) Talk(ctx context.Context, message string) (string, error) {
	return s.text(ctx, "talk", prompts.BuildFreeformPrompt(message))
}

// ContinueTalk answers the latest message of a talk thread.
func (s *Service) ContinueTalk(ctx context.Context, transcript conversation.Transcript) (string, error) {
	return s.text(ctx, "continue_talk", prompts.BuildContinueFreeformPrompt(transcript))
}

// Engage drafts the first reply to statement from the user's angle.
func (s *Service) Engage(ctx context.Context, statement, angle string) (string, error) {
	return s.text(ctx, "engage", prompts.BuildEngagePrompt(statement, angle))
}

// RefineEngage rewrites a drafted engage reply.
func (s *Service) RefineEngage(ctx context.Context, transcript conversation.Transcript) (string, error) {
	return s.text(ctx, "refine_engage", prompts.BuildRefineEngagePrompt(transcript))
}

// Reply dispatches a planned thread reply to the matching operation.
func (s *Service) Reply(ctx context.Context, plan conversation.Plan) (Reply, error) {
	switch plan.Kind {
	case conversation.ReplyRefineContent:
		contents, err := s.Refine(ctx, plan.Transcript)
		return Reply{Contents: contents}, err
	case conversation.ReplyContinueTalk:
		text, err := s.ContinueTalk(ctx, plan.Transcript)
		return Reply{Text: text}, err
	case conversation.ReplyFirstEngage:
		text, err := s.Engage(ctx, plan.Statement, plan.Angle)
		return Reply{Text: text}, err
	case conversation.ReplyRefineEngage:
		text, err := s.RefineEngage(ctx, plan.Transcript)
		return Reply{Text: text}, err
	default:
		return Reply{}, fmt.Errorf("unknown reply kind %q", plan.Kind)
	}
}

func (s *Service) content(ctx context.Context, op, prompt string, variants int, log zerolog.Logger) ([]llm.GeneratedContent, error) {
	start := time.Now()
	raw, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	contents, err := s.decoder.DecodeContent(raw, variants)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info().
		Str("op", op).
		Int("variants", len(contents)).
		Dur("duration", time.Since(start)).
		Msg("content generated")
	return contents, nil
}

func (s *Service) text(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	raw, err := s.invoker.Invoke(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	text, err := s.decoder.DecodeText(raw)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info().
		Str("op", op).
		Int("chars", len(text)).
		Dur("duration", time.Since(start)).
		Msg("reply generated")
	return text, nil
}
