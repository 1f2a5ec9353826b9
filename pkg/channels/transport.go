package channels

import "context"

// NoTextPlaceholder is what ExtractMessageText returns for updates that
// carry no text.
const NoTextPlaceholder = "No text found"

type EventKind string

// EventMessage is the only event kind transports dispatch.
const EventMessage EventKind = "message"

// Update is one inbound event. Raw holds the platform value
// (*telego.Update or *discordgo.MessageCreate); only the transport that
// produced it knows how to read it.
type Update struct {
	ID       string
	ChatID   string
	SenderID string
	Raw      interface{}
}

type UpdateHandler func(ctx context.Context, u Update)

// Transport is a chat platform connection.
type Transport interface {
	Name() string
	// AddHandler registers handler for kind. Handlers accumulate and run in
	// registration order. Kinds other than EventMessage are ignored.
	AddHandler(kind EventKind, handler UpdateHandler)
	SendMessage(ctx context.Context, text, chatID string) error
	ExtractMessageText(u Update) string
	// Run blocks until ctx is done or a fatal error occurs.
	Run(ctx context.Context) error
	// Ready is closed once the platform has accepted the credentials.
	Ready() <-chan struct{}
}
