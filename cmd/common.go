package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/hintbot/internal/config"
	"github.com/hintbot/internal/generation"
	"github.com/hintbot/internal/llm"
	"github.com/hintbot/internal/logging"
	"github.com/hintbot/internal/runner"
)

// setup loads the configuration named by the global --config flag, applies
// the --log-level override and configures the process logger.
func setup(c *cli.Context, validate func(*config.Config) error) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func newService(cfg *config.Config) (*generation.Service, error) {
	invoker, err := runner.New(cfg.Runner, logging.Component("runner"))
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	return generation.NewService(invoker, llm.NewDecoder(logging.Component("decoder")), logging.Component("generation")), nil
}
