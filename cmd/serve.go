package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hintbot/internal/api"
	"github.com/hintbot/internal/bot"
	"github.com/hintbot/internal/config"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/provider_output/webhook"
	"github.com/hintbot/internal/providers/discord"
)

// ServeCommand returns the CLI command that runs the bot
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Connect to Discord and answer slash commands and thread replies",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, logger, err := setup(c, config.ValidateBot)
	if err != nil {
		return err
	}

	svc, err := newService(cfg)
	if err != nil {
		return err
	}

	var sink bot.Sink
	if cfg.Output.Sink == config.SinkWebhook {
		sink = webhook.NewClient(cfg.Output.WebhookURL, cfg.Output.WebhookRate, logging.Component("webhook"))
	}

	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return err
	}

	b := bot.New(bot.Options{
		Platform:  discord.NewPlatform(discord.API(session)),
		Generator: svc,
		Sink:      sink,
		ChannelID: cfg.Discord.ChannelID,
		Logger:    logging.Component("bot"),
	})
	gateway := discord.NewGateway(session, b, logging.Component("gateway"))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gateway.Open(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	var health *api.Server
	if cfg.Server.HealthAddr != "" {
		health = api.NewServer(cfg.Server.HealthAddr, gateway.Connected, logging.Component("health"))
		go func() {
			errCh <- health.Start()
		}()
	}

	logger.Info().
		Str("runner_backend", cfg.Runner.Backend).
		Str("output_sink", cfg.Output.Sink).
		Msg("hintbot running")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			runErr = fmt.Errorf("health server: %w", err)
		}
	}

	var healthStop shutdowner
	if health != nil {
		healthStop = health
	}
	shutdown(logger, healthStop, gateway, api.ShutdownTimeout)
	return runErr
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

type contextCloser interface {
	Close(ctx context.Context) error
}

// shutdown stops the health server first, then drains the gateway. Each step
// gets its own timeout so a slow drain cannot starve the other.
func shutdown(logger zerolog.Logger, health shutdowner, gateway contextCloser, timeout time.Duration) {
	if health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := health.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to shut down health server")
		}
		cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := gateway.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to close gateway")
	}
}
