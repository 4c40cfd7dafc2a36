package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/hintbot/internal/bot"
	"github.com/hintbot/internal/prompts"
	"github.com/hintbot/internal/retry"
)

var minExamples = float64(prompts.MinVariants)

// Commands returns the slash command definitions.
func Commands() []*discordgo.ApplicationCommand {
	toneChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(prompts.Tones))
	for _, t := range prompts.Tones {
		toneChoices = append(toneChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(t), Value: string(t)})
	}
	lengthChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(prompts.Lengths))
	for _, l := range prompts.Lengths {
		lengthChoices = append(lengthChoices, &discordgo.ApplicationCommandOptionChoice{Name: string(l), Value: string(l)})
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        bot.CommandHint,
			Description: "Submit a content hint for AI research and generation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "topic",
					Description: "The topic or thesis to research and create content for",
					Required:    true,
					MaxLength:   bot.MaxSubjectLength,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tone",
					Description: "Voice of the generated posts",
					Choices:     toneChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "length",
					Description: "How long the posts should be",
					Choices:     lengthChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "examples",
					Description: "Number of alternative versions to generate",
					MinValue:    &minExamples,
					MaxValue:    float64(prompts.MaxVariants),
				},
			},
		},
		{
			Name:        bot.CommandEngage,
			Description: "Craft a natural reply to a social media post or statement",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "statement",
					Description: "The post or statement you want to respond to",
					Required:    true,
					MaxLength:   bot.MaxSubjectLength,
				},
			},
		},
		{
			Name:        bot.CommandTalk,
			Description: "Start a free-form conversation",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "topic",
					Description: "What do you want to talk about?",
					Required:    true,
					MaxLength:   bot.MaxSubjectLength,
				},
			},
		},
	}
}

// Register overwrites the guild's slash commands with Commands.
func Register(ctx context.Context, session Session, appID, guildID string, logger zerolog.Logger) error {
	commands := Commands()
	logger.Info().Int("command_count", len(commands)).Str("guild_id", guildID).Msg("registering slash commands")

	var registered []*discordgo.ApplicationCommand
	result := retry.Do(ctx, retry.DefaultConfig(), "register commands", func() error {
		var err error
		registered, err = session.ApplicationCommandBulkOverwrite(appID, guildID, commands, discordgo.WithContext(ctx))
		return err
	}, logger)
	if !result.Success {
		return fmt.Errorf("register commands: %w", result.LastError)
	}

	names := make([]string, 0, len(registered))
	for _, c := range registered {
		names = append(names, c.Name)
	}
	logger.Info().Strs("commands", names).Msg("slash commands registered")
	return nil
}
