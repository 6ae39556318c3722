package queue

import "context"

// Client hands a notification message to the delivery queue.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f ClientFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
