package channels

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"echobot/pkg/logger"
)

type sentMessage struct {
	channelID string
	content   string
}

type fakeDiscordSession struct {
	handlers []interface{}
	openErr  error
	opened   bool
	closed   bool
	sent     []sentMessage
	sendErr  error
}

func (f *fakeDiscordSession) AddHandler(handler interface{}) func() {
	f.handlers = append(f.handlers, handler)
	return func() {}
}

func (f *fakeDiscordSession) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = true
	return nil
}

func (f *fakeDiscordSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDiscordSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func discordMessage(id, channelID, authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        id,
		ChannelID: channelID,
		Content:   content,
		Author:    &discordgo.User{ID: authorID},
	}}
}

func readyDiscordChannel(t *testing.T, session *fakeDiscordSession) *DiscordChannel {
	t.Helper()
	ch := newDiscordChannel(session, time.Second, logger.Nop())
	ch.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot-1", Username: "echo"}})
	return ch
}

func TestDiscordRegistersGatewayHandlers(t *testing.T) {
	session := &fakeDiscordSession{}
	newDiscordChannel(session, time.Second, logger.Nop())
	if len(session.handlers) != 2 {
		t.Fatalf("expected ready and message handlers, got %d", len(session.handlers))
	}
}

func TestDiscordNeverDispatchesOwnMessages(t *testing.T) {
	session := &fakeDiscordSession{}
	ch := readyDiscordChannel(t, session)

	var got []Update
	ch.AddHandler(EventMessage, func(_ context.Context, u Update) {
		got = append(got, u)
	})

	ch.onMessageCreate(nil, discordMessage("m1", "c1", "bot-1", "Hi! Your message was received: x"))
	ch.onMessageCreate(nil, discordMessage("m2", "c1", "user-7", "hello"))

	if len(got) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(got))
	}
	if got[0].ChatID != "c1" || got[0].SenderID != "user-7" || got[0].ID != "m2" {
		t.Fatalf("unexpected update: %+v", got[0])
	}
	if text := ch.ExtractMessageText(got[0]); text != "hello" {
		t.Fatalf("extracted %q, want hello", text)
	}
}

func TestDiscordDropsMessagesBeforeReady(t *testing.T) {
	ch := newDiscordChannel(&fakeDiscordSession{}, time.Second, logger.Nop())

	calls := 0
	ch.AddHandler(EventMessage, func(context.Context, Update) { calls++ })
	ch.onMessageCreate(nil, discordMessage("m1", "c1", "user-7", "hello"))
	ch.onMessageCreate(nil, &discordgo.MessageCreate{})

	if calls != 0 {
		t.Fatalf("messages before ready must not be dispatched, got %d", calls)
	}
}

func TestDiscordExtractMessageTextPlaceholder(t *testing.T) {
	ch := newDiscordChannel(&fakeDiscordSession{}, time.Second, logger.Nop())

	for _, raw := range []interface{}{
		nil,
		42,
		&discordgo.MessageCreate{},
		discordMessage("m1", "c1", "u", ""),
	} {
		if got := ch.ExtractMessageText(Update{Raw: raw}); got != NoTextPlaceholder {
			t.Fatalf("ExtractMessageText(%v) = %q, want placeholder", raw, got)
		}
	}
}

func TestDiscordRunOpensAndClosesSession(t *testing.T) {
	session := &fakeDiscordSession{}
	ch := newDiscordChannel(session, time.Second, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
	if !session.opened || !session.closed {
		t.Fatalf("expected session opened and closed, got opened=%v closed=%v", session.opened, session.closed)
	}
}

func TestDiscordRunInvalidTokenIsAuthError(t *testing.T) {
	session := &fakeDiscordSession{
		openErr: &websocket.CloseError{Code: 4004, Text: "Authentication failed."},
	}
	ch := newDiscordChannel(session, time.Second, logger.Nop())

	err := ch.Run(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got: %v", err)
	}
}

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code},
	}
}

func TestDiscordSendMessageClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"unknown channel", restError(http.StatusNotFound, discordgo.ErrCodeUnknownChannel), ErrDelivery},
		{"missing permissions", restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), ErrPermission},
		{"unauthorized", restError(http.StatusUnauthorized, 0), ErrAuth},
		{"server error", restError(http.StatusInternalServerError, 0), ErrDelivery},
		{"timeout", context.DeadlineExceeded, ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := &fakeDiscordSession{sendErr: tc.err}
			ch := newDiscordChannel(session, time.Second, logger.Nop())

			err := ch.SendMessage(context.Background(), "pong", "c1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got: %v", tc.want, err)
			}
		})
	}
}

func TestDiscordSendMessage(t *testing.T) {
	session := &fakeDiscordSession{}
	ch := newDiscordChannel(session, time.Second, logger.Nop())

	if err := ch.SendMessage(context.Background(), "pong", "c9"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(session.sent) != 1 || session.sent[0] != (sentMessage{channelID: "c9", content: "pong"}) {
		t.Fatalf("unexpected sends: %+v", session.sent)
	}

	if err := ch.SendMessage(context.Background(), "pong", ""); !errors.Is(err, ErrDelivery) {
		t.Fatalf("empty channel id should be a delivery error, got: %v", err)
	}
}

func TestDiscordReadyClosesOnReadyEvent(t *testing.T) {
	ch := newDiscordChannel(&fakeDiscordSession{}, time.Second, logger.Nop())

	select {
	case <-ch.Ready():
		t.Fatalf("ready must stay open until the gateway confirms the session")
	default:
	}

	ch.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot-1", Username: "echo"}})
	ch.onReady(nil, &discordgo.Ready{User: &discordgo.User{ID: "bot-1", Username: "echo"}})

	select {
	case <-ch.Ready():
	default:
		t.Fatalf("ready should be closed after the Ready event")
	}
}
