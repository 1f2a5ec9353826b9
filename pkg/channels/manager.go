package channels

import (
	"fmt"

	"echobot/pkg/config"
	"echobot/pkg/logger"
)

// NewTransport builds the transport selected by cfg.
func NewTransport(cfg *config.Config, log *logger.Logger) (Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	platform := cfg.Platform()
	log.DebugCF("channels", "Initializing transport", map[string]interface{}{
		logger.FieldChannel: platform,
		"has_token":         cfg.Token() != "",
	})

	switch platform {
	case config.PlatformTelegram:
		telegram, err := NewTelegramChannel(cfg.Telegram, cfg.SendTimeout(), log)
		if err != nil {
			return nil, err
		}
		return telegram, nil
	case config.PlatformDiscord:
		discord, err := NewDiscordChannel(cfg.Discord, cfg.SendTimeout(), log)
		if err != nil {
			return nil, err
		}
		return discord, nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}
