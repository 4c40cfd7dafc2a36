package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Sections are separated
// by a double underscore, e.g. HINTBOT_DISCORD__TOKEN -> discord.token.
const EnvPrefix = "HINTBOT_"

// Runner backends.
const (
	BackendCLI = "cli"
	BackendAPI = "api"
)

// Output sinks for generated content.
const (
	SinkThread  = "thread"
	SinkWebhook = "webhook"
)

// Config represents the application configuration
type Config struct {
	Discord struct {
		Token         string `koanf:"token"`
		ApplicationID string `koanf:"application_id"`
		GuildID       string `koanf:"guild_id"`
		ChannelID     string `koanf:"channel_id"`
	} `koanf:"discord"`

	Runner RunnerConfig `koanf:"runner"`

	Output struct {
		Sink        string  `koanf:"sink"`
		WebhookURL  string  `koanf:"webhook_url"`
		WebhookRate float64 `koanf:"webhook_rate"` // posts per second
	} `koanf:"output"`

	Server struct {
		HealthAddr string `koanf:"health_addr"`
	} `koanf:"server"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`
}

// RunnerConfig configures how generation requests reach the model.
type RunnerConfig struct {
	Backend        string        `koanf:"backend"`
	Binary         string        `koanf:"binary"`
	Args           []string      `koanf:"args"`
	Timeout        time.Duration `koanf:"timeout"`
	KillGrace      time.Duration `koanf:"kill_grace"`
	MaxOutputBytes int           `koanf:"max_output_bytes"`
	APIKey         string        `koanf:"api_key"`
	Model          string        `koanf:"model"`
	MaxTokens      int           `koanf:"max_tokens"`
	PassEnv        []string      `koanf:"pass_env"`
}

// legacyEnv maps the bare DISCORD_* and ANTHROPIC_* variables onto
// config keys. They take precedence over everything else when set.
var legacyEnv = map[string]string{
	"DISCORD_TOKEN":       "discord.token",
	"DISCORD_CLIENT_ID":   "discord.application_id",
	"DISCORD_GUILD_ID":    "discord.guild_id",
	"DISCORD_CHANNEL_ID":  "discord.channel_id",
	"DISCORD_WEBHOOK_URL": "output.webhook_url",
	"ANTHROPIC_API_KEY":   "runner.api_key",
	"LOG_LEVEL":           "log.level",
}

// Defaults returns the built-in configuration values.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"runner.backend":          BackendCLI,
		"runner.binary":           "claude",
		"runner.args":             []string{"-p", "--output-format", "json"},
		"runner.timeout":          "5m",
		"runner.kill_grace":       "10s",
		"runner.max_output_bytes": 1024 * 1024,
		"runner.model":            "claude-sonnet-4-20250514",
		"runner.max_tokens":       2048,
		"output.sink":             SinkThread,
		"output.webhook_rate":     0.5,
		"log.level":               "info",
		"log.format":              "json",
	}
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		defaultPaths := []string{"./hintbot.toml", "$HOME/.hintbot.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	legacy := map[string]interface{}{}
	for name, key := range legacyEnv {
		if v := os.Getenv(name); v != "" {
			legacy[key] = v
		}
	}
	if len(legacy) > 0 {
		if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
			return nil, fmt.Errorf("error loading legacy environment: %w", err)
		}
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# hintbot configuration

[discord]
token = "your-bot-token"
application_id = "your-application-id"
guild_id = "your-guild-id"

[runner]
# cli runs <binary> <args...> <prompt>; api calls the Anthropic API directly.
backend = "cli"
binary = "claude"
args = ["-p", "--output-format", "json"]
timeout = "5m"
kill_grace = "10s"
api_key = "your-anthropic-api-key"

[output]
# thread posts into a Discord thread; webhook posts /hint results to webhook_url.
sink = "thread"
webhook_url = ""

[server]
health_addr = ":8080"

[log]
level = "info"
format = "json"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0600)
}

// Validate validates the configuration
func Validate(config *Config) error {
	switch config.Runner.Backend {
	case BackendCLI:
		if config.Runner.Binary == "" {
			return fmt.Errorf("runner binary is required for the cli backend")
		}
	case BackendAPI:
		if config.Runner.APIKey == "" {
			return fmt.Errorf("runner api_key is required for the api backend")
		}
	default:
		return fmt.Errorf("unsupported runner backend: %s", config.Runner.Backend)
	}

	if config.Runner.Timeout <= 0 {
		return fmt.Errorf("runner timeout must be positive")
	}
	if config.Runner.MaxOutputBytes <= 0 {
		return fmt.Errorf("runner max_output_bytes must be positive")
	}

	switch config.Output.Sink {
	case SinkThread:
	case SinkWebhook:
		if config.Output.WebhookURL == "" {
			return fmt.Errorf("output webhook_url is required for the webhook sink")
		}
	default:
		return fmt.Errorf("unsupported output sink: %s", config.Output.Sink)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", config.Log.Level)
	}

	return nil
}

// ValidateBot checks the settings needed to connect to Discord.
func ValidateBot(config *Config) error {
	if err := Validate(config); err != nil {
		return err
	}
	if config.Discord.Token == "" {
		return fmt.Errorf("discord token is required")
	}
	return nil
}

// ValidateRegistration checks the settings needed to register slash commands.
func ValidateRegistration(config *Config) error {
	if config.Discord.Token == "" {
		return fmt.Errorf("discord token is required")
	}
	if config.Discord.ApplicationID == "" {
		return fmt.Errorf("discord application_id is required")
	}
	if config.Discord.GuildID == "" {
		return fmt.Errorf("discord guild_id is required")
	}
	return nil
}
