// Package bot handles slash commands and thread replies. Every failure in a
// handler ends as a message to the user; nothing escapes to the caller.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/generation"
	"github.com/hintbot/internal/llm"
	"github.com/hintbot/internal/prompts"
)

// Command names.
const (
	CommandHint   = "hint"
	CommandEngage = "engage"
	CommandTalk   = "talk"
)

// MaxSubjectLength caps topics and statements taken from command options.
const MaxSubjectLength = 1000

// Generator is the model-facing side of the bot.
type Generator interface {
	Hint(ctx context.Context, topic string, opts prompts.Options) ([]llm.GeneratedContent, error)
	Talk(ctx context.Context, message string) (string, error)
	Reply(ctx context.Context, plan conversation.Plan) (generation.Reply, error)
}

// Sink receives /hint results instead of a new thread when configured.
type Sink interface {
	Post(ctx context.Context, msg chat.Outgoing) error
}

// Options configures a Bot.
type Options struct {
	Platform  chat.Platform
	Generator Generator
	// Sink, when set, receives /hint content instead of a thread.
	Sink Sink
	// ChannelID, when set, restricts commands and thread replies to one
	// channel and the threads under it.
	ChannelID string
	Logger    zerolog.Logger
}

// Bot routes platform events to handlers.
type Bot struct {
	platform  chat.Platform
	gen       Generator
	sink      Sink
	channelID string
	logger    zerolog.Logger

	mu    sync.RWMutex
	botID string
}

// New creates a bot. SetIdentity must be called before thread replies are
// handled.
func New(opts Options) *Bot {
	return &Bot{
		platform:  opts.Platform,
		gen:       opts.Generator,
		sink:      opts.Sink,
		channelID: opts.ChannelID,
		logger:    opts.Logger,
	}
}

// SetIdentity records the bot's own user ID once the platform session is up.
func (b *Bot) SetIdentity(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.botID = userID
}

func (b *Bot) identity() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.botID
}

// HandleCommand answers one slash command invocation.
func (b *Bot) HandleCommand(ctx context.Context, cmd chat.Command, resp chat.Responder) {
	log := b.logger.With().
		Str("request_id", uuid.NewString()).
		Str("command", cmd.Name).
		Str("user_id", cmd.UserID).
		Str("channel_id", cmd.ChannelID).
		Logger()
	defer recoverHandler(log)

	if b.channelID != "" && cmd.ChannelID != b.channelID {
		b.reject(ctx, log, resp, fmt.Sprintf("Please use this command in %s.", b.platform.Mention(b.channelID)))
		return
	}

	switch cmd.Name {
	case CommandHint:
		b.handleHint(ctx, log, cmd, resp)
	case CommandEngage:
		b.handleEngage(ctx, log, cmd, resp)
	case CommandTalk:
		b.handleTalk(ctx, log, cmd, resp)
	default:
		log.Warn().Msg("unknown command")
	}
}

func (b *Bot) reject(ctx context.Context, log zerolog.Logger, resp chat.Responder, text string) {
	if err := resp.Defer(ctx); err != nil {
		log.Error().Err(err).Msg("failed to defer reply (interaction expired)")
		return
	}
	b.editReply(ctx, log, resp, chat.Outgoing{Content: text})
}

func (b *Bot) editReply(ctx context.Context, log zerolog.Logger, resp chat.Responder, msg chat.Outgoing) {
	if err := resp.EditReply(ctx, msg); err != nil {
		log.Error().Err(err).Msg("failed to edit reply")
	}
}

func recoverHandler(log zerolog.Logger) {
	if r := recover(); r != nil {
		log.Error().
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("handler panicked")
	}
}
