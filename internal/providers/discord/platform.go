// Package discord adapts a discordgo session to the bot core: it implements
// chat.Platform over the REST API, routes gateway events to the bot, and
// registers the slash commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/hintbot/internal/chat"
)

// ThreadArchiveMinutes is the auto-archive duration for threads the bot opens.
const ThreadArchiveMinutes = 1440

// Session is the subset of *discordgo.Session the adapter calls.
type Session interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ThreadStartComplex(channelID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
}

// Platform implements chat.Platform on top of a Discord session.
type Platform struct {
	session Session
}

// NewPlatform wraps session.
func NewPlatform(session Session) *Platform {
	return &Platform{session: session}
}

// CreateThread opens a public thread under channelID.
func (p *Platform) CreateThread(ctx context.Context, channelID, name, reason string) (chat.Thread, error) {
	ch, err := p.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		AutoArchiveDuration: ThreadArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	}, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return chat.Thread{}, fmt.Errorf("start thread in %s: %w", channelID, err)
	}
	return toThread(ch), nil
}

// Send posts msg to a channel or thread.
func (p *Platform) Send(ctx context.Context, channelID string, msg chat.Outgoing) error {
	if _, err := p.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return nil
}

// StarterMessage returns the message a thread was started from. Threads
// opened without a parent message have none; for those the oldest message
// in the thread stands in.
func (p *Platform) StarterMessage(ctx context.Context, thread chat.Thread) (chat.Message, error) {
	if thread.ParentID != "" {
		m, err := p.session.ChannelMessage(thread.ParentID, thread.ID, discordgo.WithContext(ctx))
		switch {
		case err == nil:
			return toMessage(m), nil
		case !isNotFound(err):
			return chat.Message{}, fmt.Errorf("fetch starter message: %w", err)
		}
	}

	first, err := p.session.ChannelMessages(thread.ID, 1, "", "0", "", discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return chat.Message{}, chat.ErrNotFound
		}
		return chat.Message{}, fmt.Errorf("fetch first thread message: %w", err)
	}
	if len(first) == 0 || first[0] == nil {
		return chat.Message{}, chat.ErrNotFound
	}
	return toMessage(first[0]), nil
}

// RecentMessages returns up to limit of the newest messages in channelID.
func (p *Platform) RecentMessages(ctx context.Context, channelID string, limit int) ([]chat.Message, error) {
	msgs, err := p.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch messages in %s: %w", channelID, err)
	}
	return toMessages(msgs), nil
}

// Typing shows the typing indicator in channelID.
func (p *Platform) Typing(ctx context.Context, channelID string) error {
	return p.session.ChannelTyping(channelID, discordgo.WithContext(ctx))
}

// Mention renders a channel link.
func (p *Platform) Mention(channelID string) string {
	return "<#" + channelID + ">"
}

// Thread resolves channelID and reports whether it is a thread.
func (p *Platform) Thread(ctx context.Context, channelID string) (chat.Thread, bool, error) {
	ch, err := p.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return chat.Thread{}, false, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	if !ch.IsThread() {
		return chat.Thread{}, false, nil
	}
	return toThread(ch), true, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

// responder answers one interaction.
type responder struct {
	session     Session
	interaction *discordgo.Interaction
}

// NewResponder returns a chat.Responder for interaction.
func NewResponder(session Session, interaction *discordgo.Interaction) chat.Responder {
	return &responder{session: session, interaction: interaction}
}

func (r *responder) Defer(ctx context.Context) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
}

func (r *responder) EditReply(ctx context.Context, msg chat.Outgoing) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, toWebhookEdit(msg), discordgo.WithContext(ctx))
	return err
}
