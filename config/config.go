// Package config loads the bot's YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "mathbot.yaml"
	homeConfigName    = "config.yaml"
)

// Duration wraps time.Duration so values can be written as "10s" or "1m"
// in YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full mathbot.yaml shape.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Limits    LimitsConfig    `yaml:"limits"`
}

// TelegramConfig configures the transport.
type TelegramConfig struct {
	// Token is the bot token. ${ENV} references are expanded, so the
	// file can say token: ${MATHBOT_TOKEN} instead of embedding it.
	Token string `yaml:"token"`

	// BaseURL overrides the Bot API endpoint.
	BaseURL string `yaml:"base_url"`

	// PollInterval is the pause between getUpdates calls (default 1s).
	PollInterval Duration `yaml:"poll_interval"`

	// PollTimeout is the long-poll hold time (default 10s).
	PollTimeout Duration `yaml:"poll_timeout"`

	// DropPending discards the backlog at startup (default true).
	DropPending *bool `yaml:"drop_pending"`

	// SendInterval is the per-chat minimum gap between replies.
	SendInterval Duration `yaml:"send_interval"`

	// AllowedChatIDs restricts which chats get answers (empty = all).
	AllowedChatIDs []int64 `yaml:"allowed_chat_ids"`
}

// StoreConfig configures persistence. With no SQLitePath the bot keeps
// everything in memory.
type StoreConfig struct {
	SQLitePath     string   `yaml:"sqlite_path"`
	RetentionAge   Duration `yaml:"retention_age"`
	RetentionCount int      `yaml:"retention_count"`

	// PruneSchedule is a UTC cron expression for retention pruning
	// (default "0 3 * * *").
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig configures the OTLP trace pipeline.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// LimitsConfig bounds inbound input.
type LimitsConfig struct {
	// MaxInputLen rejects longer expressions without parsing them
	// (default 1024, 0 disables the limit).
	MaxInputLen *int `yaml:"max_input_len"`
}

// Default returns the built-in configuration.
func Default() Config {
	dropPending := true
	maxInputLen := 1024
	return Config{
		Telegram: TelegramConfig{
			PollInterval: Duration(time.Second),
			PollTimeout:  Duration(10 * time.Second),
			DropPending:  &dropPending,
		},
		Store: StoreConfig{
			PruneSchedule: "0 3 * * *",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "mathbot",
		},
		Limits: LimitsConfig{
			MaxInputLen: &maxInputLen,
		},
	}
}

// DiscoverPath resolves the config file location with first-match
// semantics: explicit path, then ./mathbot.yaml, then
// ~/.mathbot/config.yaml.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 3)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		candidates = append(candidates, filepath.Join(homeDir, ".mathbot", homeConfigName))
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// If explicit path is set, not found is an error.
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads a config file on top of the defaults. String fields may
// reference environment variables with ${NAME}.
func Load(path string) (Config, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.Telegram.Token = os.ExpandEnv(cfg.Telegram.Token)
	cfg.Telegram.BaseURL = os.ExpandEnv(cfg.Telegram.BaseURL)
	cfg.Store.SQLitePath = os.ExpandEnv(cfg.Store.SQLitePath)
	cfg.Telemetry.OTLPEndpoint = os.ExpandEnv(cfg.Telemetry.OTLPEndpoint)
	return cfg, nil
}
