package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/hintbot/internal/chat"
)

func toAuthor(u *discordgo.User) chat.Author {
	if u == nil {
		return chat.Author{}
	}
	return chat.Author{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func toMessage(m *discordgo.Message) chat.Message {
	out := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Author:    toAuthor(m.Author),
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		out.Embeds = append(out.Embeds, chat.Embed{Title: e.Title, Description: e.Description, Color: e.Color})
	}
	return out
}

func toMessages(in []*discordgo.Message) []chat.Message {
	out := make([]chat.Message, 0, len(in))
	for _, m := range in {
		if m != nil {
			out = append(out, toMessage(m))
		}
	}
	return out
}

func toThread(ch *discordgo.Channel) chat.Thread {
	return chat.Thread{ID: ch.ID, ParentID: ch.ParentID, Name: ch.Name, OwnerID: ch.OwnerID}
}

func toEmbeds(in []chat.Embed) []*discordgo.MessageEmbed {
	if len(in) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(in))
	for _, e := range in {
		out = append(out, &discordgo.MessageEmbed{Title: e.Title, Description: e.Description, Color: e.Color})
	}
	return out
}

func toMessageSend(msg chat.Outgoing) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: msg.Content, Embeds: toEmbeds(msg.Embeds)}
}

func toWebhookEdit(msg chat.Outgoing) *discordgo.WebhookEdit {
	content := msg.Content
	embeds := toEmbeds(msg.Embeds)
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{Content: &content, Embeds: &embeds}
}

// toCommand flattens an application command interaction. ch is the channel
// it was invoked in and may be nil when it could not be resolved.
func toCommand(i *discordgo.Interaction, ch *discordgo.Channel) chat.Command {
	data := i.ApplicationCommandData()
	cmd := chat.Command{
		Name:          data.Name,
		ChannelID:     i.ChannelID,
		InTextChannel: ch != nil && ch.Type == discordgo.ChannelTypeGuildText,
		Strings:       map[string]string{},
		Ints:          map[string]int64{},
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		cmd.UserID = i.Member.User.ID
	case i.User != nil:
		cmd.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			cmd.Strings[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			cmd.Ints[opt.Name] = opt.IntValue()
		}
	}
	return cmd
}
