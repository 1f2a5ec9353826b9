// Package bot holds the business logic: answer every inbound message with
// a reply derived from its text.
package bot

import (
	"context"
	"errors"
	"fmt"

	"echobot/pkg/channels"
	"echobot/pkg/config"
	"echobot/pkg/lifecycle"
	"echobot/pkg/logger"
)

// Responder computes the reply for an inbound text.
type Responder func(text string) string

// FormatResponse is the default Responder.
func FormatResponse(text string) string {
	return config.DefaultResponsePrefix + text
}

// PrefixResponder answers with prefix followed by the inbound text.
func PrefixResponder(prefix string) Responder {
	return func(text string) string { return prefix + text }
}

type Option func(*Bot)

func WithResponder(r Responder) Option {
	return func(b *Bot) {
		if r != nil {
			b.respond = r
		}
	}
}

type Bot struct {
	transport channels.Transport
	log       *logger.Logger
	respond   Responder
	runner    *lifecycle.LoopRunner
}

// New wires the bot to transport and registers it as the message handler.
func New(transport channels.Transport, log *logger.Logger, opts ...Option) *Bot {
	if log == nil {
		log = logger.Nop()
	}
	b := &Bot{
		transport: transport,
		log:       log,
		respond:   FormatResponse,
		runner:    lifecycle.NewLoopRunner(),
	}
	for _, o := range opts {
		o(b)
	}
	transport.AddHandler(channels.EventMessage, b.HandleMessage)
	return b
}

// HandleMessage replies once to u on the chat it came from. Failures are
// logged and never returned.
func (b *Bot) HandleMessage(ctx context.Context, u channels.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logFailure(u, fmt.Errorf("panic: %v", r))
		}
	}()

	text := b.transport.ExtractMessageText(u)
	response := b.respond(text)

	b.log.DebugCF("bot", "Handling message", map[string]interface{}{
		logger.FieldChannel:              b.transport.Name(),
		logger.FieldChatID:               u.ChatID,
		logger.FieldMessageContentLength: len(text),
		logger.FieldResponseLength:       len(response),
	})

	if u.ChatID == "" {
		b.logFailure(u, &channels.Error{
			Kind:     channels.KindDelivery,
			Platform: b.transport.Name(),
			Op:       "send",
			Err:      errors.New("update has no destination"),
		})
		return
	}

	if err := b.transport.SendMessage(ctx, response, u.ChatID); err != nil {
		b.logFailure(u, err)
	}
}

func (b *Bot) logFailure(u channels.Update, err error) {
	kind := channels.Classify(err)
	fields := map[string]interface{}{
		logger.FieldChannel: b.transport.Name(),
		logger.FieldChatID:  u.ChatID,
		logger.FieldKind:    kind.String(),
		logger.FieldError:   err.Error(),
	}

	switch kind {
	case channels.KindTimeout:
		b.log.ErrorCF("bot", "Timeout occurred while handling the message", fields)
	case channels.KindPermission:
		b.log.ErrorCF("bot", "Bot does not have permission to send messages in this channel", fields)
	case channels.KindDelivery:
		b.log.ErrorCF("bot", "Delivery error occurred", fields)
	case channels.KindAuth:
		b.log.ErrorCF("bot", "Credential rejected while sending", fields)
	default:
		b.log.ErrorCF("bot", "An unexpected error occurred", fields)
	}
}

// Run blocks on the transport's receive loop.
func (b *Bot) Run(ctx context.Context) error {
	return b.transport.Run(ctx)
}

// Start runs the transport in the background. It reports false if already started.
func (b *Bot) Start(ctx context.Context) bool {
	return b.runner.Start(ctx, b.transport.Run)
}

// Stop cancels a background run and waits for it to finish.
func (b *Bot) Stop() {
	b.runner.Stop()
}

// Done is closed when a background run ends.
func (b *Bot) Done() <-chan struct{} {
	return b.runner.Done()
}

// Err returns the error of the finished background run.
func (b *Bot) Err() error {
	return b.runner.Err()
}

// Ready is closed once the transport has authenticated.
func (b *Bot) Ready() <-chan struct{} {
	return b.transport.Ready()
}
