package bot

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hintbot/internal/chat"
	"github.com/hintbot/internal/conversation"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/prompts"
)

const textChannelOnly = "This command can only be used in a text channel."

// HintOptions reads and normalizes /hint options.
func HintOptions(cmd chat.Command) prompts.Options {
	opts := prompts.Options{
		Tone:   prompts.Tone(cmd.String("tone")),
		Length: prompts.Length(cmd.String("length")),
	}
	if n, ok := cmd.Int("examples"); ok {
		opts.Variants = int(n)
	}
	return opts.Normalize()
}

func subject(cmd chat.Command, option string) string {
	s := strings.TrimSpace(cmd.String(option))
	if utf8.RuneCountInString(s) > MaxSubjectLength {
		s = string([]rune(s)[:MaxSubjectLength])
	}
	return s
}

func (b *Bot) handleHint(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder) {
	topic := subject(cmd, "topic")
	opts := HintOptions(cmd)
	log = log.With().
		Str("topic", logging.Excerpt(topic, 80)).
		Int("variants", opts.Variants).
		Logger()

	if err := resp.Defer(ctx); err != nil {
		log.Error().Err(err).Msg("failed to defer reply (interaction expired)")
		return
	}
	if topic == "" {
		b.editReply(ctx, log, resp, chat.Outgoing{Content: "Please provide a topic."})
		return
	}

	if err := b.runHint(ctx, log, cmd, resp, topic, opts); err != nil {
		log.Error().Err(err).Msg("failed to generate content")
		b.editReply(ctx, log, resp, chat.Outgoing{
			Content: fmt.Sprintf("Failed to generate content for \"%s\". Please try again later.", topic),
		})
	}
}

func (b *Bot) runHint(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder, topic string, opts prompts.Options) error {
	if err := resp.EditReply(ctx, chat.Outgoing{
		Content: fmt.Sprintf("Researching **\"%s\"**... This may take a few minutes.", topic),
	}); err != nil {
		return fmt.Errorf("edit progress reply: %w", err)
	}

	contents, err := b.gen.Hint(ctx, topic, opts)
	if err != nil {
		return err
	}
	messages := ContentMessages(topic, contents)

	if b.sink != nil {
		for _, msg := range messages {
			if err := b.sink.Post(ctx, msg); err != nil {
				return fmt.Errorf("post to webhook: %w", err)
			}
		}
		log.Info().Msg("hint content posted to webhook")
		return resp.EditReply(ctx, chat.Outgoing{
			Content: fmt.Sprintf("Done! Content for **\"%s\"** posted to the webhook channel.", topic),
		})
	}

	if !cmd.InTextChannel {
		return resp.EditReply(ctx, messages[0])
	}

	thread, err := b.platform.CreateThread(ctx, cmd.ChannelID,
		conversation.ThreadName("", topic), "Content generation for: "+topic)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	for _, msg := range messages {
		if err := b.platform.Send(ctx, thread.ID, msg); err != nil {
			return fmt.Errorf("post content: %w", err)
		}
	}
	if err := b.platform.Send(ctx, thread.ID, chat.Outgoing{Content: conversation.RefineHint}); err != nil {
		return fmt.Errorf("post refine hint: %w", err)
	}

	log.Info().Str("thread_id", thread.ID).Msg("hint thread created")
	return resp.EditReply(ctx, chat.Outgoing{
		Content: fmt.Sprintf("Done! Content for **\"%s\"** posted in thread: %s", topic, b.platform.Mention(thread.ID)),
	})
}

func (b *Bot) handleEngage(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder) {
	statement := subject(cmd, "statement")
	log = log.With().Str("statement", logging.Excerpt(statement, 80)).Logger()

	if err := resp.Defer(ctx); err != nil {
		log.Error().Err(err).Msg("failed to defer reply (interaction expired)")
		return
	}
	if !cmd.InTextChannel {
		b.editReply(ctx, log, resp, chat.Outgoing{Content: textChannelOnly})
		return
	}
	if statement == "" {
		b.editReply(ctx, log, resp, chat.Outgoing{Content: "Please provide a statement to respond to."})
		return
	}

	if err := b.runEngage(ctx, log, cmd, resp, statement); err != nil {
		log.Error().Err(err).Msg("failed to create engage thread")
		b.editReply(ctx, log, resp, chat.Outgoing{
			Content: "Failed to set up the engage thread. Please try again later.",
		})
	}
}

func (b *Bot) runEngage(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder, statement string) error {
	thread, err := b.platform.CreateThread(ctx, cmd.ChannelID,
		conversation.ThreadName(conversation.EngageThreadPrefix, statement), "Engage response for: "+statement)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	if err := b.platform.Send(ctx, thread.ID, chat.Outgoing{Content: conversation.StatementMessage(statement)}); err != nil {
		return fmt.Errorf("post statement: %w", err)
	}
	if err := b.platform.Send(ctx, thread.ID, chat.Outgoing{Content: conversation.AnglePrompt}); err != nil {
		return fmt.Errorf("post angle prompt: %w", err)
	}

	log.Info().Str("thread_id", thread.ID).Msg("engage thread created")
	return resp.EditReply(ctx, chat.Outgoing{
		Content: "Thread created! Share your take here: " + b.platform.Mention(thread.ID),
	})
}

func (b *Bot) handleTalk(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder) {
	topic := subject(cmd, "topic")
	log = log.With().Str("topic", logging.Excerpt(topic, 80)).Logger()

	if err := resp.Defer(ctx); err != nil {
		log.Error().Err(err).Msg("failed to defer reply (interaction expired)")
		return
	}
	if !cmd.InTextChannel {
		b.editReply(ctx, log, resp, chat.Outgoing{Content: textChannelOnly})
		return
	}
	if topic == "" {
		b.editReply(ctx, log, resp, chat.Outgoing{Content: "Please provide a topic."})
		return
	}

	if err := b.runTalk(ctx, log, cmd, resp, topic); err != nil {
		log.Error().Err(err).Msg("failed to create talk thread")
		b.editReply(ctx, log, resp, chat.Outgoing{
			Content: "Failed to set up the talk thread. Please try again later.",
		})
	}
}

func (b *Bot) runTalk(ctx context.Context, log zerolog.Logger, cmd chat.Command, resp chat.Responder, topic string) error {
	thread, err := b.platform.CreateThread(ctx, cmd.ChannelID,
		conversation.ThreadName(conversation.TalkThreadPrefix, topic), "Talk conversation: "+topic)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	if err := b.platform.Typing(ctx, thread.ID); err != nil {
		log.Debug().Err(err).Msg("typing indicator failed")
	}

	reply, err := b.gen.Talk(ctx, topic)
	if err != nil {
		return err
	}
	if err := b.sendText(ctx, thread.ID, reply); err != nil {
		return fmt.Errorf("post reply: %w", err)
	}

	log.Info().Str("thread_id", thread.ID).Msg("talk thread created")
	return resp.EditReply(ctx, chat.Outgoing{
		Content: "Thread created! Continue the conversation here: " + b.platform.Mention(thread.ID),
	})
}

func (b *Bot) sendText(ctx context.Context, channelID, text string) error {
	for _, chunk := range SplitMessage(text) {
		if err := b.platform.Send(ctx, channelID, chat.Outgoing{Content: chunk}); err != nil {
			return err
		}
	}
	return nil
}
