package config

import (
	"errors"
	"fmt"
	"strings"

	"echobot/pkg/logger"
)

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalid           = errors.New("invalid config value")
)

// Validate returns configuration problems found in cfg.
// It does not mutate cfg.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if strings.TrimSpace(cfg.Token()) == "" {
		key := "DISCORD_TOKEN"
		if cfg.UseTelegram {
			key = "TELEGRAM_TOKEN"
		}
		errs = append(errs, fmt.Errorf("%w: %s is required when %s is selected", ErrMissingCredential, key, cfg.Platform()))
	}

	if cfg.UseTelegram {
		if cfg.Telegram.PollTimeoutSec < 0 {
			errs = append(errs, fmt.Errorf("%w: telegram.poll_timeout_sec must be >= 0", ErrInvalid))
		}
		if cfg.Telegram.PollIntervalMS <= 0 {
			errs = append(errs, fmt.Errorf("%w: telegram.poll_interval_ms must be > 0", ErrInvalid))
		}
	}

	if cfg.Bot.SendTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("%w: bot.send_timeout_sec must be > 0", ErrInvalid))
	}

	if _, err := logger.ParseLevel(cfg.Logging.ConsoleLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging.console_level: %v", ErrInvalid, err))
	}
	if _, err := logger.ParseLevel(cfg.Logging.FileLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: logging.file_level: %v", ErrInvalid, err))
	}
	if cfg.Logging.FileEnabled && strings.TrimSpace(cfg.Logging.File) == "" {
		errs = append(errs, fmt.Errorf("%w: logging.file must be set when file_enabled=true", ErrInvalid))
	}

	return errs
}

// ConfigError aggregates the problems reported by Validate.
type ConfigError struct {
	Problems []error
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Error())
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (e *ConfigError) Unwrap() []error {
	return e.Problems
}

// Check wraps Validate into a single error, nil when cfg is usable.
func Check(cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return &ConfigError{Problems: errs}
	}
	return nil
}
