// Package chat holds the platform-neutral view of threads, messages and slash
// commands that the bot core works against. Platform adapters (see
// internal/providers) translate to and from these types.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested message or channel does not exist.
var ErrNotFound = errors.New("not found")

// Author identifies who wrote a message.
type Author struct {
	ID       string
	Username string
	Bot      bool
}

// Embed is a structured block attached to a message.
type Embed struct {
	Title       string
	Description string
	Color       int
}

// Message is one message as read back from the platform.
type Message struct {
	ID        string
	ChannelID string
	Author    Author
	Content   string
	Embeds    []Embed
	CreatedAt time.Time
}

// Thread is a sub-conversation anchored in a text channel.
type Thread struct {
	ID       string
	ParentID string
	Name     string
	OwnerID  string
}

// Outgoing is a message to post: text, embeds, or both.
type Outgoing struct {
	Content string
	Embeds  []Embed
}

// Platform is the subset of chat-platform operations the bot needs.
type Platform interface {
	CreateThread(ctx context.Context, channelID, name, reason string) (Thread, error)
	Send(ctx context.Context, channelID string, msg Outgoing) error
	// StarterMessage returns the message a thread was anchored to, or
	// ErrNotFound when the platform has none.
	StarterMessage(ctx context.Context, thread Thread) (Message, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]Message, error)
	Typing(ctx context.Context, channelID string) error
	// Mention renders a clickable reference to a channel or thread.
	Mention(channelID string) string
}

// Command is an invoked slash command with its options already parsed.
type Command struct {
	Name          string
	UserID        string
	ChannelID     string
	InTextChannel bool
	Strings       map[string]string
	Ints          map[string]int64
}

// String returns a string option or the empty string.
func (c Command) String(name string) string {
	return c.Strings[name]
}

// Int returns an integer option and whether it was supplied.
func (c Command) Int(name string) (int64, bool) {
	v, ok := c.Ints[name]
	return v, ok
}

// Responder answers a single slash command invocation.
type Responder interface {
	// Defer acknowledges the command; it fails once the interaction expired.
	Defer(ctx context.Context) error
	EditReply(ctx context.Context, msg Outgoing) error
}
