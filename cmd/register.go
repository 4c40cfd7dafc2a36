package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/hintbot/internal/config"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/providers/discord"
)

// RegisterCommand returns the CLI command that registers slash commands
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register the /hint, /engage and /talk commands for the configured guild",
		Action: func(c *cli.Context) error {
			cfg, _, err := setup(c, config.ValidateRegistration)
			if err != nil {
				return err
			}

			session, err := discord.NewSession(cfg.Discord.Token)
			if err != nil {
				return err
			}
			return discord.Register(c.Context, discord.API(session), cfg.Discord.ApplicationID, cfg.Discord.GuildID, logging.Component("register"))
		},
	}
}
