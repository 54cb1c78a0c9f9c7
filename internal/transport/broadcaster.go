package transport

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNoSubscribers is returned when an emit reached nobody.
	ErrNoSubscribers = errors.New("no subscribers")

	// ErrNoTransport is returned when a Conductor has no Broadcaster.
	ErrNoTransport = errors.New("no transport configured")

	// ErrNotSupported is returned by operations that cannot be carried out,
	// such as broadcasting to one user class over a shared channel.
	ErrNotSupported = errors.New("not supported")
)

// Broadcaster publishes a payload on a named channel.
type Broadcaster interface {
	Emit(ctx context.Context, channel string, payload []byte) error
}

// Message is the frame pushed to websocket clients.
type Message struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// MultiBroadcaster emits to every broadcaster in order.
//
// The result is nil if at least one broadcaster delivered, ErrNoSubscribers if
// all of them reported ErrNoSubscribers, and the joined failures otherwise.
type MultiBroadcaster []Broadcaster

// Emit implements Broadcaster.
func (m MultiBroadcaster) Emit(ctx context.Context, channel string, payload []byte) error {
	var (
		errs      []error
		delivered bool
	)
	for _, b := range m {
		err := b.Emit(ctx, channel, payload)
		switch {
		case err == nil:
			delivered = true
		case errors.Is(err, ErrNoSubscribers):
		default:
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !delivered {
		return ErrNoSubscribers
	}
	return nil
}
