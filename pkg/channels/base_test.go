package channels

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"echobot/pkg/logger"
)

func TestHandlersAccumulateInRegistrationOrder(t *testing.T) {
	base := NewBaseChannel("test", logger.Nop())

	var order []string
	base.AddHandler(EventMessage, func(context.Context, Update) { order = append(order, "first") })
	base.AddHandler(EventMessage, func(context.Context, Update) { order = append(order, "second") })
	base.AddHandler(EventKind("reaction"), func(context.Context, Update) { order = append(order, "reaction") })
	base.AddHandler(EventMessage, nil)

	if n := base.handlerCount(); n != 2 {
		t.Fatalf("expected 2 handlers, got %d", n)
	}

	base.dispatch(context.Background(), Update{ChatID: "1"})
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected call order: %v", order)
	}
}

func TestDispatchRecoversPanickingHandler(t *testing.T) {
	base := NewBaseChannel("test", logger.Nop())

	calls := 0
	base.AddHandler(EventMessage, func(context.Context, Update) { panic("boom") })
	base.AddHandler(EventMessage, func(context.Context, Update) { calls++ })

	base.dispatch(context.Background(), Update{ChatID: "1"})
	base.dispatch(context.Background(), Update{ChatID: "2"})

	if calls != 2 {
		t.Fatalf("handler after a panicking one should still run, calls=%d", calls)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnclassified},
		{errors.New("boom"), KindUnclassified},
		{context.DeadlineExceeded, KindTimeout},
		{fmt.Errorf("post: %w", timeoutErr{}), KindTimeout},
		{newError(KindPermission, "discord", "send", errors.New("403")), KindPermission},
		{fmt.Errorf("wrapped: %w", newError(KindDelivery, "telegram", "send", nil)), KindDelivery},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestErrorMatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("chat not found")
	err := newError(KindDelivery, "telegram", "send", cause)

	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("expected ErrDelivery")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if errors.Is(err, ErrPermission) {
		t.Fatalf("delivery error must not match ErrPermission")
	}
	if got := err.Error(); got != "telegram send: delivery: chat not found" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestTruncateStringKeepsRunesWhole(t *testing.T) {
	if got := truncateString("héllo", 2); got != "h" {
		t.Fatalf("truncateString = %q, want h", got)
	}
	if got := truncateString("hello", 10); got != "hello" {
		t.Fatalf("truncateString = %q, want hello", got)
	}
}
