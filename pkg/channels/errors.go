package channels

import (
	"context"
	"errors"
	"net"
)

type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindTimeout
	KindDelivery
	KindPermission
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindDelivery:
		return "delivery"
	case KindPermission:
		return "permission"
	case KindAuth:
		return "auth"
	default:
		return "unclassified"
	}
}

var (
	ErrTimeout    = errors.New("transport timeout")
	ErrDelivery   = errors.New("delivery failed")
	ErrPermission = errors.New("permission denied")
	ErrAuth       = errors.New("authentication failed")
)

// Error is returned by transports for every platform failure. It matches
// the sentinel of its kind with errors.Is and unwraps to the cause.
type Error struct {
	Kind     ErrorKind
	Platform string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Platform + " " + e.Op + ": " + e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindDelivery:
		return ErrDelivery
	case KindPermission:
		return ErrPermission
	case KindAuth:
		return ErrAuth
	default:
		return nil
	}
}

func newError(kind ErrorKind, platform, op string, err error) *Error {
	return &Error{Kind: kind, Platform: platform, Op: op, Err: err}
}

// Classify reports the kind of err. Transport errors carry their own kind;
// deadlines and network timeouts are timeouts; anything else is unclassified.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnclassified
	}
	var tErr *Error
	if errors.As(err, &tErr) {
		return tErr.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindUnclassified
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
