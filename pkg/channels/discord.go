package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"echobot/pkg/config"
	"echobot/pkg/logger"
)

// Gateway close codes, see the Discord gateway documentation.
const (
	discordCloseAuthenticationFailed = 4004
	discordCloseDisallowedIntents    = 4014
)

// discordSession is the subset of *discordgo.Session the channel uses.
type discordSession interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordChannel receives messages over the Discord gateway.
type DiscordChannel struct {
	*BaseChannel
	session     discordSession
	sendTimeout time.Duration

	mu        sync.RWMutex
	botUserID string
	ctx       context.Context
}

func NewDiscordChannel(cfg config.DiscordConfig, sendTimeout time.Duration, log *logger.Logger) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, newError(KindAuth, "discord", "init", fmt.Errorf("failed to create discord session: %w", err))
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	// Handlers run one at a time on the event loop.
	session.SyncEvents = true

	return newDiscordChannel(session, sendTimeout, log), nil
}

func newDiscordChannel(session discordSession, sendTimeout time.Duration, log *logger.Logger) *DiscordChannel {
	c := &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", log),
		session:     session,
		sendTimeout: sendTimeout,
		ctx:         context.Background(),
	}
	session.AddHandler(c.onReady)
	session.AddHandler(c.onMessageCreate)
	return c
}

func (c *DiscordChannel) Run(ctx context.Context) error {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()

	c.log.InfoC("discord", "Starting Discord bot (gateway mode)")
	if err := c.session.Open(); err != nil {
		return classifyDiscordOpenError(err)
	}

	<-ctx.Done()
	c.log.InfoC("discord", "Stopping Discord bot")
	if err := c.session.Close(); err != nil {
		c.log.WarnCF("discord", "Error closing discord session", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	return nil
}

func (c *DiscordChannel) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r == nil || r.User == nil {
		return
	}
	c.mu.Lock()
	c.botUserID = r.User.ID
	c.mu.Unlock()
	c.markReady()

	c.log.InfoCF("discord", "Logged in as "+r.User.Username, map[string]interface{}{
		"user_id": r.User.ID,
	})
}

func (c *DiscordChannel) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil || m.Author == nil {
		return
	}

	c.mu.RLock()
	botID := c.botUserID
	ctx := c.ctx
	c.mu.RUnlock()

	// Own identity unknown until Ready; never answer our own messages.
	if botID == "" || m.Author.ID == botID {
		return
	}

	c.log.InfoCF("discord", "Discord message received", map[string]interface{}{
		logger.FieldSenderID: m.Author.ID,
		logger.FieldChatID:   m.ChannelID,
		logger.FieldPreview:  truncateString(m.Content, 50),
	})

	c.dispatch(ctx, Update{
		ID:       m.ID,
		ChatID:   m.ChannelID,
		SenderID: m.Author.ID,
		Raw:      m,
	})
}

func (c *DiscordChannel) ExtractMessageText(u Update) string {
	m, ok := u.Raw.(*discordgo.MessageCreate)
	if !ok || m == nil || m.Message == nil || m.Content == "" {
		return NoTextPlaceholder
	}
	return m.Content
}

func (c *DiscordChannel) SendMessage(ctx context.Context, text, chatID string) error {
	if chatID == "" {
		return newError(KindDelivery, "discord", "send", errors.New("empty channel ID"))
	}

	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	if _, err := c.session.ChannelMessageSend(chatID, text, discordgo.WithContext(ctx)); err != nil {
		return classifyDiscordSendError(err)
	}

	c.log.DebugCF("discord", "Discord message sent", map[string]interface{}{
		logger.FieldChatID:         chatID,
		logger.FieldResponseLength: len(text),
	})
	return nil
}

func classifyDiscordOpenError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		switch closeErr.Code {
		case discordCloseAuthenticationFailed:
			return newError(KindAuth, "discord", "open", err)
		case discordCloseDisallowedIntents:
			return newError(KindPermission, "discord", "open", err)
		}
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusUnauthorized {
		return newError(KindAuth, "discord", "open", err)
	}
	return newError(Classify(err), "discord", "open", fmt.Errorf("failed to open discord session: %w", err))
}

func classifyDiscordSendError(err error) error {
	if isTimeout(err) {
		return newError(KindTimeout, "discord", "send", err)
	}

	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return newError(KindUnclassified, "discord", "send", err)
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownChannel:
			return newError(KindDelivery, "discord", "send", fmt.Errorf("channel not found: %w", err))
		case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
			return newError(KindPermission, "discord", "send", err)
		}
	}

	if restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusUnauthorized:
			return newError(KindAuth, "discord", "send", err)
		case http.StatusForbidden:
			return newError(KindPermission, "discord", "send", err)
		case http.StatusNotFound:
			return newError(KindDelivery, "discord", "send", fmt.Errorf("channel not found: %w", err))
		}
	}
	return newError(KindDelivery, "discord", "send", err)
}
