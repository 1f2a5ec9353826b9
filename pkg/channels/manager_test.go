package channels

import (
	"errors"
	"testing"

	"echobot/pkg/config"
	"echobot/pkg/logger"
)

func TestNewTransportSelectsPlatform(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Discord.Token = "discord-token"

	tr, err := NewTransport(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("discord transport: %v", err)
	}
	if _, ok := tr.(*DiscordChannel); !ok || tr.Name() != "discord" {
		t.Fatalf("expected discord transport, got %T", tr)
	}

	cfg.UseTelegram = true
	cfg.Telegram.Token = "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	tr, err = NewTransport(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("telegram transport: %v", err)
	}
	if _, ok := tr.(*TelegramChannel); !ok || tr.Name() != "telegram" {
		t.Fatalf("expected telegram transport, got %T", tr)
	}
}

func TestNewTransportRejectsMalformedTelegramToken(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.UseTelegram = true
	cfg.Telegram.Token = "not-a-token"

	if _, err := NewTransport(cfg, logger.Nop()); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}
