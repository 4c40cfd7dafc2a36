package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hintbot/internal/bot"
	"github.com/hintbot/internal/config"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/prompts"
	"github.com/hintbot/internal/provider_output/webhook"
)

// GenerateCommand returns the one-shot generation command
func GenerateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Generate LinkedIn and X posts for a topic",
		ArgsUsage: "TOPIC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tone",
				Usage: "Voice of the posts (professional, casual, provocative, educational, humorous)",
				Value: string(prompts.ToneProfessional),
			},
			&cli.StringFlag{
				Name:  "length",
				Usage: "Post length (short, medium, long)",
				Value: string(prompts.LengthMedium),
			},
			&cli.IntFlag{
				Name:  "examples",
				Usage: "Number of alternative versions (1-3)",
				Value: 1,
			},
			&cli.BoolFlag{
				Name:  "webhook",
				Usage: "Post the result to the configured webhook instead of printing it",
			},
		},
		Action: runGenerate,
	}
}

func runGenerate(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("missing required argument: TOPIC")
	}
	topic := c.Args().Get(0)

	cfg, logger, err := setup(c, config.Validate)
	if err != nil {
		return err
	}
	if c.Bool("webhook") && cfg.Output.WebhookURL == "" {
		return fmt.Errorf("invalid configuration: output webhook_url is required with --webhook")
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	opts := prompts.Options{
		Tone:     prompts.Tone(c.String("tone")),
		Length:   prompts.Length(c.String("length")),
		Variants: c.Int("examples"),
	}.Normalize()

	contents, err := svc.Hint(c.Context, topic, opts)
	if err != nil {
		return fmt.Errorf("failed to generate content: %w", err)
	}

	if !c.Bool("webhook") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(contents)
	}

	client := webhook.NewClient(cfg.Output.WebhookURL, cfg.Output.WebhookRate, logging.Component("webhook"))
	for _, msg := range bot.ContentMessages(topic, contents) {
		if err := client.Post(c.Context, msg); err != nil {
			return err
		}
	}
	logger.Info().Int("variants", len(contents)).Msg("content posted to webhook")
	return nil
}
