package channels

import (
	"context"
	"fmt"
	"sync"

	"echobot/pkg/logger"
)

// BaseChannel holds what both transports share: a name, the logger and the
// message handler list.
type BaseChannel struct {
	name     string
	log      *logger.Logger
	handlers []UpdateHandler
	mu       sync.RWMutex

	ready     chan struct{}
	readyOnce sync.Once
}

func NewBaseChannel(name string, log *logger.Logger) *BaseChannel {
	if log == nil {
		log = logger.Nop()
	}
	return &BaseChannel{name: name, log: log, ready: make(chan struct{})}
}

func (c *BaseChannel) Ready() <-chan struct{} {
	return c.ready
}

func (c *BaseChannel) markReady() {
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) AddHandler(kind EventKind, handler UpdateHandler) {
	if handler == nil {
		return
	}
	if kind != EventMessage {
		c.log.WarnCF(c.name, "Ignoring handler for unsupported event kind", map[string]interface{}{
			"event": string(kind),
		})
		return
	}

	c.mu.Lock()
	c.handlers = append(c.handlers, handler)
	c.mu.Unlock()
}

func (c *BaseChannel) handlerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

// dispatch runs every handler for u, in order, on the caller's goroutine.
// A panicking handler is logged and does not prevent the others from running.
func (c *BaseChannel) dispatch(ctx context.Context, u Update) {
	c.mu.RLock()
	handlers := make([]UpdateHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.log.DebugCF(c.name, "No handler registered, dropping update", map[string]interface{}{
			logger.FieldChatID: u.ChatID,
		})
		return
	}

	for _, h := range handlers {
		c.invoke(ctx, h, u)
	}
}

func (c *BaseChannel) invoke(ctx context.Context, h UpdateHandler, u Update) {
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorCF(c.name, "Recovered panic in message handler", map[string]interface{}{
				"panic":            fmt.Sprintf("%v", r),
				logger.FieldChatID: u.ChatID,
			})
		}
	}()
	h(ctx, u)
}
