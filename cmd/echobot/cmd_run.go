package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"echobot/pkg/bot"
	"echobot/pkg/channels"
	"echobot/pkg/logger"
)

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	listenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func runCmd() int {
	cfg, err := loadValidConfig()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return 1
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error configuring logging: %v\n", err)
		return 1
	}
	defer log.Close()

	transport, err := channels.NewTransport(cfg, log)
	if err != nil {
		return reportRunError(log, err)
	}

	b := bot.New(transport, log, bot.WithResponder(bot.PrefixResponder(cfg.Bot.ResponsePrefix)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	return runUntilDone(context.Background(), b, cfg.Platform(), sigChan, os.Stdout, log)
}

// runUntilDone starts b and returns the process exit code. The banner is
// printed only after the platform accepted the credentials.
func runUntilDone(ctx context.Context, b *bot.Bot, platform string, sig <-chan os.Signal, out io.Writer, log *logger.Logger) int {
	b.Start(ctx)

	ready := b.Ready()
	for {
		select {
		case <-ready:
			ready = nil
			fmt.Fprintln(out, bannerStyle.Render(platformTitle(platform)+" bot is now running!"))
			fmt.Fprintln(out, listenStyle.Render("Listening for messages..."))
			log.InfoCF("main", "Bot started", map[string]interface{}{
				logger.FieldChannel: platform,
			})
		case <-sig:
			fmt.Fprintln(out, "\nShutting down...")
			b.Stop()
			log.InfoC("main", "Bot stopped")
			return 0
		case <-b.Done():
			if err := b.Err(); err != nil {
				return reportRunError(log, err)
			}
			return 0
		}
	}
}

func reportRunError(log *logger.Logger, err error) int {
	fields := map[string]interface{}{logger.FieldError: err.Error()}
	if errors.Is(err, channels.ErrAuth) {
		log.FatalCF("main", "authentication failed", fields)
	} else {
		log.FatalCF("main", "Bot stopped with error", fields)
	}
	return 1
}

func platformTitle(platform string) string {
	if platform == "" {
		return platform
	}
	return strings.ToUpper(platform[:1]) + platform[1:]
}
