package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	PlatformDiscord  = "discord"
	PlatformTelegram = "telegram"

	DefaultResponsePrefix = "Hi! Your message was received: "
)

type Config struct {
	UseTelegram bool           `json:"use_telegram" env:"USE_TELEGRAM"`
	Discord     DiscordConfig  `json:"discord"`
	Telegram    TelegramConfig `json:"telegram"`
	Bot         BotConfig      `json:"bot"`
	Logging     LoggingConfig  `json:"logging"`
}

type DiscordConfig struct {
	Token string `json:"token" env:"DISCORD_TOKEN"`
}

type TelegramConfig struct {
	Token          string `json:"token" env:"TELEGRAM_TOKEN"`
	APIServer      string `json:"api_server" env:"TELEGRAM_API_SERVER"`
	PollTimeoutSec int    `json:"poll_timeout_sec" env:"TELEGRAM_POLL_TIMEOUT_SEC"`
	PollIntervalMS int    `json:"poll_interval_ms" env:"TELEGRAM_POLL_INTERVAL_MS"`
}

type BotConfig struct {
	ResponsePrefix string `json:"response_prefix" env:"ECHOBOT_RESPONSE_PREFIX"`
	SendTimeoutSec int    `json:"send_timeout_sec" env:"ECHOBOT_SEND_TIMEOUT_SEC"`
}

type LoggingConfig struct {
	ConsoleLevel  string `json:"console_level" env:"LOG_LEVEL_CONSOLE"`
	FileLevel     string `json:"file_level" env:"LOG_LEVEL_FILE"`
	FileEnabled   bool   `json:"file_enabled" env:"ECHOBOT_LOG_FILE_ENABLED"`
	File          string `json:"file" env:"ECHOBOT_LOG_FILE"`
	MaxSizeMB     int    `json:"max_size_mb" env:"ECHOBOT_LOG_MAX_SIZE_MB"`
	RetentionDays int    `json:"retention_days" env:"ECHOBOT_LOG_RETENTION_DAYS"`
}

func DefaultConfig() *Config {
	return &Config{
		UseTelegram: false,
		Telegram: TelegramConfig{
			PollTimeoutSec: 10,
			PollIntervalMS: 1000,
		},
		Bot: BotConfig{
			ResponsePrefix: DefaultResponsePrefix,
			SendTimeoutSec: 15,
		},
		Logging: LoggingConfig{
			ConsoleLevel:  "INFO",
			FileLevel:     "DEBUG",
			FileEnabled:   true,
			File:          "app.log",
			MaxSizeMB:     20,
			RetentionDays: 3,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig applies defaults, then the JSON file at path (optional), then
// the environment.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := unmarshalConfigStrict(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(false): parseEnvBool,
		},
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode applies data over the defaults using the same strict rules as
// LoadConfig, without consulting the environment.
func Decode(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := unmarshalConfigStrict(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseEnvBool treats a case-insensitive "true" as true and any other value
// as false, so USE_TELEGRAM=yes selects Discord instead of failing startup.
func parseEnvBool(v string) (interface{}, error) {
	return strings.EqualFold(strings.TrimSpace(v), "true"), nil
}

func unmarshalConfigStrict(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return fmt.Errorf("invalid config: trailing JSON content")
		}
		return err
	}
	return nil
}

// Platform names the transport selected by UseTelegram.
func (c *Config) Platform() string {
	if c.UseTelegram {
		return PlatformTelegram
	}
	return PlatformDiscord
}

// Token returns the credential of the selected platform.
func (c *Config) Token() string {
	if c.UseTelegram {
		return c.Telegram.Token
	}
	return c.Discord.Token
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Bot.SendTimeoutSec) * time.Second
}

// PollInterval is the minimum spacing between two getUpdates rounds.
func (c TelegramConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	cp := *c
	cp.Discord.Token = redact(c.Discord.Token)
	cp.Telegram.Token = redact(c.Telegram.Token)
	return &cp
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
