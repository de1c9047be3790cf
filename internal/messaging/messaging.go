// Package messaging sends relay messages from other contexts. Every send is a
// request/response with an explicit deadline; a missing reply is reported as
// ErrNoResponse rather than left to the caller to detect.
package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/brizzai/recall/internal/relay"
)

// DefaultTimeout bounds a send when the caller gives none.
const DefaultTimeout = 5 * time.Second

// ErrNoResponse means the relay was unreachable or did not reply in time.
var ErrNoResponse = errors.New("messaging: no response received")

// Client delivers a message to the relay and waits for its reply.
type Client interface {
	Send(ctx context.Context, msg relay.Message) (relay.Response, error)
}

// Callback receives the outcome of an asynchronous send. It is called at most
// once.
type Callback func(relay.Response, error)

// SendAsync sends msg without blocking the caller. cb may be nil for pure
// fire-and-forget use.
func SendAsync(ctx context.Context, c Client, msg relay.Message, cb Callback) {
	go func() {
		resp, err := c.Send(ctx, msg)
		if cb != nil {
			cb(resp, err)
		}
	}()
}

// LocalClient delivers to an in-process relay.Handler. The handler runs on
// its own goroutine so a stuck handler still yields ErrNoResponse.
type LocalClient struct {
	handler relay.Handler
	timeout time.Duration
}

// NewLocalClient wraps h. A zero timeout uses DefaultTimeout.
func NewLocalClient(h relay.Handler, timeout time.Duration) *LocalClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LocalClient{handler: h, timeout: timeout}
}

func (c *LocalClient) Send(ctx context.Context, msg relay.Message) (relay.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan relay.Response, 1)
	go func() {
		done <- c.handler.Handle(ctx, msg)
	}()

	select {
	case resp := <-done:
		return resp, nil
	case <-ctx.Done():
		return nil, errors.Join(ErrNoResponse, ctx.Err())
	}
}
