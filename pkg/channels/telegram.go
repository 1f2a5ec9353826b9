package channels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"echobot/pkg/config"
	"echobot/pkg/logger"
)

const (
	telegramInitTimeout     = 15 * time.Second
	telegramPollGrace       = 5 * time.Second
	telegramDefaultInterval = time.Second
)

// telegramAPI is the subset of *telego.Bot the channel uses.
type telegramAPI interface {
	GetMe(ctx context.Context) (*telego.User, error)
	GetUpdates(ctx context.Context, params *telego.GetUpdatesParams) ([]telego.Update, error)
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// TelegramChannel polls the Bot API for updates. The cursor is owned by the
// Run loop; nothing else writes it.
type TelegramChannel struct {
	*BaseChannel
	bot          telegramAPI
	pollTimeout  int
	pollInterval time.Duration
	sendTimeout  time.Duration
	botID        int64
	cursor       atomic.Int64
}

func NewTelegramChannel(cfg config.TelegramConfig, sendTimeout time.Duration, log *logger.Logger) (*TelegramChannel, error) {
	opts := []telego.BotOption{telego.WithDefaultLogger(false, false)}
	if strings.TrimSpace(cfg.APIServer) != "" {
		opts = append(opts, telego.WithAPIServer(cfg.APIServer))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, newError(KindAuth, "telegram", "init", fmt.Errorf("failed to create telegram bot: %w", err))
	}

	return newTelegramChannel(bot, cfg, sendTimeout, log), nil
}

func newTelegramChannel(bot telegramAPI, cfg config.TelegramConfig, sendTimeout time.Duration, log *logger.Logger) *TelegramChannel {
	interval := cfg.PollInterval()
	if interval <= 0 {
		interval = telegramDefaultInterval
	}
	return &TelegramChannel{
		BaseChannel:  NewBaseChannel("telegram", log),
		bot:          bot,
		pollTimeout:  cfg.PollTimeoutSec,
		pollInterval: interval,
		sendTimeout:  sendTimeout,
	}
}

// Cursor is the next update id the channel will ask for.
func (c *TelegramChannel) Cursor() int64 {
	return c.cursor.Load()
}

func (c *TelegramChannel) Run(ctx context.Context) error {
	if err := c.initialize(ctx); err != nil {
		return err
	}

	// One poll round per interval; Wait returns early when ctx is done.
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			c.log.InfoC("telegram", "Polling stopped")
			return nil
		}

		updates, err := c.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.InfoC("telegram", "Polling stopped")
				return nil
			}
			if isTimeout(err) {
				c.log.DebugC("telegram", "getUpdates timed out, polling again")
				continue
			}
			if telegramErrorCode(err) == http.StatusUnauthorized {
				return newError(KindAuth, "telegram", "poll", err)
			}
			c.log.WarnCF("telegram", "getUpdates failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			continue
		}

		c.processUpdates(ctx, updates)
	}
}

type pollResult struct {
	updates []telego.Update
	err     error
}

// poll runs one getUpdates request bounded by the long-poll timeout plus
// telegramPollGrace. The HTTP client does not abort an in-flight request on
// cancellation, so the call runs on its own goroutine and poll returns as
// soon as ctx is done; the request itself ends at its deadline.
func (c *TelegramChannel) poll(ctx context.Context) ([]telego.Update, error) {
	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(c.pollTimeout)*time.Second+telegramPollGrace)

	done := make(chan pollResult, 1)
	go func() {
		defer cancel()
		updates, err := c.bot.GetUpdates(pollCtx, &telego.GetUpdatesParams{
			Offset:  int(c.cursor.Load()),
			Timeout: c.pollTimeout,
		})
		done <- pollResult{updates: updates, err: err}
	}()

	select {
	case res := <-done:
		return res.updates, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *TelegramChannel) initialize(ctx context.Context) error {
	c.log.InfoC("telegram", "Starting Telegram bot (polling mode)")

	initCtx, cancel := context.WithTimeout(ctx, telegramInitTimeout)
	defer cancel()

	me, err := c.bot.GetMe(initCtx)
	if err != nil {
		if telegramErrorCode(err) == http.StatusUnauthorized {
			return newError(KindAuth, "telegram", "init", err)
		}
		return newError(Classify(err), "telegram", "init", fmt.Errorf("failed to get bot info: %w", err))
	}
	c.botID = me.ID
	c.markReady()

	c.log.InfoCF("telegram", "Telegram bot connected", map[string]interface{}{
		"username": me.Username,
	})
	return nil
}

// processUpdates handles one batch in arrival order. The cursor moves past
// every update, including the ones that are not dispatched.
func (c *TelegramChannel) processUpdates(ctx context.Context, updates []telego.Update) {
	for i := range updates {
		u := &updates[i]
		id := int64(u.UpdateID)
		if id < c.cursor.Load() {
			c.log.DebugCF("telegram", "Skipping already processed update", map[string]interface{}{
				logger.FieldUpdateID: id,
			})
			continue
		}

		if c.shouldDispatch(u) {
			c.dispatch(ctx, c.toUpdate(u))
		}
		c.cursor.Store(id + 1)
	}
}

// shouldDispatch keeps plain text messages that are neither bot commands
// nor sent by the bot itself.
func (c *TelegramChannel) shouldDispatch(u *telego.Update) bool {
	msg := u.Message
	if msg == nil || msg.Text == "" {
		return false
	}
	if strings.HasPrefix(msg.Text, "/") {
		return false
	}
	if msg.From != nil && c.botID != 0 && msg.From.ID == c.botID {
		return false
	}
	return true
}

func (c *TelegramChannel) toUpdate(u *telego.Update) Update {
	out := Update{
		ID:  strconv.Itoa(u.UpdateID),
		Raw: u,
	}
	if u.Message != nil {
		out.ChatID = strconv.FormatInt(u.Message.Chat.ID, 10)
		if u.Message.From != nil {
			out.SenderID = strconv.FormatInt(u.Message.From.ID, 10)
		}
		c.log.InfoCF("telegram", "Telegram message received", map[string]interface{}{
			logger.FieldSenderID: out.SenderID,
			logger.FieldChatID:   out.ChatID,
			logger.FieldPreview:  truncateString(u.Message.Text, 50),
		})
	}
	return out
}

func (c *TelegramChannel) ExtractMessageText(u Update) string {
	var upd *telego.Update
	switch raw := u.Raw.(type) {
	case *telego.Update:
		upd = raw
	case telego.Update:
		upd = &raw
	}
	if upd == nil || upd.Message == nil || upd.Message.Text == "" {
		return NoTextPlaceholder
	}
	return upd.Message.Text
}

func (c *TelegramChannel) SendMessage(ctx context.Context, text, chatID string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(chatID), 10, 64)
	if err != nil {
		return newError(KindDelivery, "telegram", "send", fmt.Errorf("invalid chat ID %q: %w", chatID, err))
	}

	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}

	if _, err := c.bot.SendMessage(ctx, telegoutil.Message(telegoutil.ID(id), text)); err != nil {
		return classifyTelegramError("send", err)
	}

	c.log.DebugCF("telegram", "Telegram message sent", map[string]interface{}{
		logger.FieldChatID:         chatID,
		logger.FieldResponseLength: len(text),
	})
	return nil
}

func classifyTelegramError(op string, err error) error {
	if isTimeout(err) {
		return newError(KindTimeout, "telegram", op, err)
	}
	switch telegramErrorCode(err) {
	case http.StatusUnauthorized:
		return newError(KindAuth, "telegram", op, err)
	case http.StatusForbidden:
		return newError(KindPermission, "telegram", op, err)
	case 0:
		return newError(KindUnclassified, "telegram", op, err)
	default:
		return newError(KindDelivery, "telegram", op, err)
	}
}

// telegramErrorCode extracts the Bot API error code, 0 if err is not an API error.
func telegramErrorCode(err error) int {
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return 0
}
