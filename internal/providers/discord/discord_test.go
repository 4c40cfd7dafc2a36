package discord

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hintbot/internal/chat"
)

var notFound = &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"}}

type fakeSession struct {
	mu sync.Mutex

	channels      map[string]*discordgo.Channel
	messages      map[string]*discordgo.Message
	channelMsgs   map[string][]*discordgo.Message
	channelMsgErr error
	messageErr    error
	bulkErr       error

	threadStarts []*discordgo.ThreadStart
	sends        []*discordgo.MessageSend
	typing       []string
	responds     []*discordgo.InteractionResponse
	edits        []*discordgo.WebhookEdit
	bulk         []string
	afterIDs     []string
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if ch, ok := f.channels[channelID]; ok {
		return ch, nil
	}
	return nil, notFound
}

func (f *fakeSession) ThreadStartComplex(channelID string, data *discordgo.ThreadStart, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadStarts = append(f.threadStarts, data)
	return &discordgo.Channel{ID: "th1", ParentID: channelID, Name: data.Name, OwnerID: "100", Type: data.Type}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, data)
	return &discordgo.Message{ID: "m", ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.messageErr != nil {
		return nil, f.messageErr
	}
	if m, ok := f.messages[channelID+"/"+messageID]; ok {
		return m, nil
	}
	return nil, notFound
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, _, afterID, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.afterIDs = append(f.afterIDs, afterID)
	if f.channelMsgErr != nil {
		return nil, f.channelMsgErr
	}
	msgs := f.channelMsgs[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeSession) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.typing = append(f.typing, channelID)
	return nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responds = append(f.responds, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edits = append(f.edits, edit)
	return &discordgo.Message{}, nil
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.bulk = append(f.bulk, appID+"/"+guildID)
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	return commands, nil
}

func TestPlatform_CreateThread(t *testing.T) {
	s := &fakeSession{}
	p := NewPlatform(s)

	th, err := p.CreateThread(context.Background(), "500", "edge computing", "Content generation for: edge computing")
	require.NoError(t, err)

	assert.Equal(t, chat.Thread{ID: "th1", ParentID: "500", Name: "edge computing", OwnerID: "100"}, th)
	require.Len(t, s.threadStarts, 1)
	assert.Equal(t, ThreadArchiveMinutes, s.threadStarts[0].AutoArchiveDuration)
	assert.Equal(t, discordgo.ChannelTypeGuildPublicThread, s.threadStarts[0].Type)
}

func TestPlatform_SendConvertsEmbeds(t *testing.T) {
	s := &fakeSession{}
	p := NewPlatform(s)

	err := p.Send(context.Background(), "th1", chat.Outgoing{
		Content: "**Content generated for:** edge computing",
		Embeds:  []chat.Embed{{Title: "LinkedIn Post", Description: "body", Color: 0x0a66c2}},
	})
	require.NoError(t, err)

	require.Len(t, s.sends, 1)
	assert.Equal(t, "**Content generated for:** edge computing", s.sends[0].Content)
	require.Len(t, s.sends[0].Embeds, 1)
	assert.Equal(t, &discordgo.MessageEmbed{Title: "LinkedIn Post", Description: "body", Color: 0x0a66c2}, s.sends[0].Embeds[0])
}

func TestPlatform_StarterMessage(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	bot := &discordgo.User{ID: "100", Username: "hintbot", Bot: true}
	thread := chat.Thread{ID: "th1", ParentID: "500"}

	t.Run("starter in parent channel", func(t *testing.T) {
		s := &fakeSession{messages: map[string]*discordgo.Message{
			"500/th1": {ID: "th1", ChannelID: "500", Author: bot, Content: "hello", Timestamp: ts},
		}}
		m, err := NewPlatform(s).StarterMessage(context.Background(), thread)
		require.NoError(t, err)
		assert.Equal(t, chat.Message{ID: "th1", ChannelID: "500", Author: chat.Author{ID: "100", Username: "hintbot", Bot: true}, Content: "hello", CreatedAt: ts}, m)
	})

	t.Run("falls back to oldest thread message", func(t *testing.T) {
		s := &fakeSession{channelMsgs: map[string][]*discordgo.Message{
			"th1": {{ID: "1", ChannelID: "th1", Author: bot, Content: "**Statement to respond to:**\nx"}},
		}}
		m, err := NewPlatform(s).StarterMessage(context.Background(), thread)
		require.NoError(t, err)
		assert.Equal(t, "1", m.ID)
		assert.Equal(t, []string{"0"}, s.afterIDs)
	})

	t.Run("empty thread", func(t *testing.T) {
		_, err := NewPlatform(&fakeSession{}).StarterMessage(context.Background(), thread)
		assert.ErrorIs(t, err, chat.ErrNotFound)
	})

	t.Run("other errors propagate", func(t *testing.T) {
		s := &fakeSession{messageErr: errors.New("HTTP 500 Internal Server Error")}
		_, err := NewPlatform(s).StarterMessage(context.Background(), thread)
		require.Error(t, err)
		assert.NotErrorIs(t, err, chat.ErrNotFound)
	})
}

func TestPlatform_RecentMessages(t *testing.T) {
	s := &fakeSession{channelMsgs: map[string][]*discordgo.Message{
		"th1": {
			{ID: "2", Author: &discordgo.User{ID: "200"}, Content: "shorter", Embeds: []*discordgo.MessageEmbed{nil}},
			nil,
			{ID: "1", Author: &discordgo.User{ID: "100", Bot: true}, Embeds: []*discordgo.MessageEmbed{{Title: "X (Twitter) Post", Description: "x"}}},
		},
	}}

	msgs, err := NewPlatform(s).RecentMessages(context.Background(), "th1", 50)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[0].Embeds)
	assert.Equal(t, []chat.Embed{{Title: "X (Twitter) Post", Description: "x"}}, msgs[1].Embeds)
	assert.True(t, msgs[1].Author.Bot)
}

func TestPlatform_Thread(t *testing.T) {
	s := &fakeSession{channels: map[string]*discordgo.Channel{
		"500": {ID: "500", Type: discordgo.ChannelTypeGuildText},
		"th1": {ID: "th1", ParentID: "500", Name: "[talk] x", OwnerID: "100", Type: discordgo.ChannelTypeGuildPublicThread},
	}}
	p := NewPlatform(s)

	_, ok, err := p.Thread(context.Background(), "500")
	require.NoError(t, err)
	assert.False(t, ok)

	th, ok, err := p.Thread(context.Background(), "th1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, chat.Thread{ID: "th1", ParentID: "500", Name: "[talk] x", OwnerID: "100"}, th)

	assert.Equal(t, "<#th1>", p.Mention("th1"))
}

func TestResponder(t *testing.T) {
	s := &fakeSession{}
	r := NewResponder(s, &discordgo.Interaction{ID: "i1"})

	require.NoError(t, r.Defer(context.Background()))
	require.NoError(t, r.EditReply(context.Background(), chat.Outgoing{Content: "Researching..."}))

	require.Len(t, s.responds, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, s.responds[0].Type)
	require.Len(t, s.edits, 1)
	assert.Equal(t, "Researching...", *s.edits[0].Content)
	assert.Empty(t, *s.edits[0].Embeds)
}

func commandInteraction(channelID string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:        "i1",
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: channelID,
		Member:    &discordgo.Member{User: &discordgo.User{ID: "200"}},
		Data:      discordgo.ApplicationCommandInteractionData{Name: "hint", Options: opts},
	}
}

func TestToCommand(t *testing.T) {
	i := commandInteraction("500",
		&discordgo.ApplicationCommandInteractionDataOption{Name: "topic", Type: discordgo.ApplicationCommandOptionString, Value: "edge computing"},
		&discordgo.ApplicationCommandInteractionDataOption{Name: "examples", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(2)},
	)

	cmd := toCommand(i, &discordgo.Channel{ID: "500", Type: discordgo.ChannelTypeGuildText})

	assert.Equal(t, chat.Command{
		Name:          "hint",
		UserID:        "200",
		ChannelID:     "500",
		InTextChannel: true,
		Strings:       map[string]string{"topic": "edge computing"},
		Ints:          map[string]int64{"examples": 2},
	}, cmd)

	dm := toCommand(commandInteraction("dm"), nil)
	assert.False(t, dm.InTextChannel)
}

func TestCommands(t *testing.T) {
	cmds := Commands()
	require.Len(t, cmds, 3)

	names := []string{cmds[0].Name, cmds[1].Name, cmds[2].Name}
	assert.Equal(t, []string{"hint", "engage", "talk"}, names)

	hint := cmds[0]
	require.Len(t, hint.Options, 4)
	assert.True(t, hint.Options[0].Required)
	assert.Equal(t, 1000, hint.Options[0].MaxLength)
	assert.Len(t, hint.Options[1].Choices, 5)
	assert.Len(t, hint.Options[2].Choices, 3)
	assert.Equal(t, 1.0, *hint.Options[3].MinValue)
	assert.Equal(t, 3.0, hint.Options[3].MaxValue)

	for _, c := range cmds[1:] {
		require.Len(t, c.Options, 1)
		assert.Equal(t, 1000, c.Options[0].MaxLength)
	}
}

func TestRegister(t *testing.T) {
	s := &fakeSession{}
	require.NoError(t, Register(context.Background(), s, "app", "guild", zerolog.Nop()))
	assert.Equal(t, []string{"app/guild"}, s.bulk)

	s = &fakeSession{bulkErr: errors.New("HTTP 401 Unauthorized")}
	err := Register(context.Background(), s, "app", "guild", zerolog.Nop())
	require.Error(t, err)
	assert.Len(t, s.bulk, 1)
}

type fakeHandler struct {
	mu       sync.Mutex
	identity string
	commands []chat.Command
	threads  []chat.Thread
	messages []chat.Message
}

func (h *fakeHandler) SetIdentity(id string) { h.identity = id }

func (h *fakeHandler) HandleCommand(_ context.Context, cmd chat.Command, _ chat.Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, cmd)
}

func (h *fakeHandler) HandleThreadMessage(_ context.Context, thread chat.Thread, msg chat.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threads = append(h.threads, thread)
	h.messages = append(h.messages, msg)
}

func TestGateway_Events(t *testing.T) {
	s := &fakeSession{channels: map[string]*discordgo.Channel{
		"500": {ID: "500", Type: discordgo.ChannelTypeGuildText},
		"th1": {ID: "th1", ParentID: "500", Name: "[talk] x", Type: discordgo.ChannelTypeGuildPublicThread},
	}}
	h := &fakeHandler{}
	g := newGateway(s, h, zerolog.Nop())

	assert.False(t, g.Connected())
	g.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "100", Username: "hintbot"}})
	assert.True(t, g.Connected())
	assert.Equal(t, "100", h.identity)

	g.onInteraction(nil, &discordgo.InteractionCreate{Interaction: commandInteraction("500")})
	require.Len(t, h.commands, 1)
	assert.True(t, h.commands[0].InTextChannel)

	g.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "a", ChannelID: "th1", Author: &discordgo.User{ID: "900", Bot: true}}})
	g.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "b", ChannelID: "500", Author: &discordgo.User{ID: "200"}}})
	g.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "c", ChannelID: "th1", Author: &discordgo.User{ID: "200"}, Content: "go on"}})
	require.Len(t, h.messages, 1)
	assert.Equal(t, "c", h.messages[0].ID)
	assert.Equal(t, "th1", h.threads[0].ID)

	g.onDisconnect(nil, &discordgo.Disconnect{})
	assert.False(t, g.Connected())
	g.onResumed(nil, &discordgo.Resumed{})
	assert.True(t, g.Connected())

	require.NoError(t, g.Close(context.Background()))
	assert.False(t, g.Connected())
	g.onMessage(nil, &discordgo.MessageCreate{Message: &discordgo.Message{ID: "d", ChannelID: "th1", Author: &discordgo.User{ID: "200"}}})
	assert.Len(t, h.messages, 1)
}
