package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/generation"
)

// HandleThreadMessage answers a message posted in a thread the bot owns.
// Messages from any bot, and threads the bot did not create, are ignored.
func (b *Bot) HandleThreadMessage(ctx context.Context, thread chat.Thread, msg chat.Message) {
	log := b.logger.With().
		Str("thread_id", thread.ID).
		Str("message_id", msg.ID).
		Logger()
	defer recoverHandler(log)

	botID := b.identity()
	if botID == "" || msg.Author.ID == botID || msg.Author.Bot {
		return
	}
	if b.channelID != "" && thread.ParentID != b.channelID {
		return
	}

	var starter *chat.Message
	switch m, err := b.platform.StarterMessage(ctx, thread); {
	case err == nil:
		starter = &m
	case errors.Is(err, chat.ErrNotFound):
	default:
		log.Error().Err(err).Msg("failed to fetch starter message")
		return
	}
	if !conversation.IsOwnThread(thread, starter, botID) {
		return
	}

	messages, err := b.platform.RecentMessages(ctx, thread.ID, conversation.HistoryWindow)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch thread history")
		return
	}

	plan, ok := conversation.PlanReply(conversation.ReplyInput{
		Thread:   thread,
		Starter:  starter,
		Messages: messages,
		Trigger:  msg,
		BotID:    botID,
	})
	if !ok {
		return
	}

	log = log.With().
		Str("mode", string(plan.Mode)).
		Str("kind", string(plan.Kind)).
		Int("message_count", len(plan.Transcript)).
		Logger()
	log.Info().Msg("processing thread reply")

	if err := b.answer(ctx, log, thread, plan); err != nil {
		log.Error().Err(err).Msg("failed to process thread reply")
		if err := b.platform.Send(ctx, thread.ID, chat.Outgoing{Content: conversation.ReplyApology}); err != nil {
			log.Error().Err(err).Msg("failed to send apology")
		}
	}
}

func (b *Bot) answer(ctx context.Context, log zerolog.Logger, thread chat.Thread, plan conversation.Plan) error {
	if err := b.platform.Typing(ctx, thread.ID); err != nil {
		log.Debug().Err(err).Msg("typing indicator failed")
	}

	reply, err := b.gen.Reply(ctx, plan)
	if err != nil {
		return err
	}

	if err := b.post(ctx, thread.ID, reply); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}
	log.Info().Msg("thread reply posted")
	return nil
}

func (b *Bot) post(ctx context.Context, threadID string, reply generation.Reply) error {
	if len(reply.Contents) > 0 {
		return b.platform.Send(ctx, threadID, UpdatedMessage(reply.Contents[0]))
	}
	return b.sendText(ctx, threadID, reply.Text)
}
