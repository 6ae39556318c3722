// Package workerproc decodes notification jobs and delivers them. It is shared
// by the long-polling worker and the Lambda SQS handler.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/queue"
)

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidMessage indicates a decoded message that can never be delivered,
// such as one without a submission id or recipient.
type ErrInvalidMessage struct {
	Meta         MessageMeta
	SubmissionID string
	RequestID    string
	Err          error
}

func (e ErrInvalidMessage) Error() string { return "invalid message: " + e.Err.Error() }

func (e ErrInvalidMessage) Unwrap() error { return e.Err }

// ErrProcess indicates delivery failed after successful parsing. These are
// retried by leaving the message on the queue.
type ErrProcess struct {
	SubmissionID string
	RequestID    string
	Err          error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "deliver notification"
	}
	return "deliver notification: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether a failed message should be dropped rather
// than retried.
func Unrecoverable(err error) bool {
	var empty ErrEmptyBody
	var dec ErrDecode
	var inv ErrInvalidMessage
	return errors.As(err, &empty) || errors.As(err, &dec) || errors.As(err, &inv)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrInvalidMessage{Meta: meta, SubmissionID: msg.SubmissionID, RequestID: msg.RequestID, Err: err}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and delivers a message payload.
func HandleMessage(ctx context.Context, notifier notify.Notifier, body string) error {
	if notifier == nil {
		return errors.New("notifier not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	n := msg.Notification
	if n.SubmissionID == "" {
		n.SubmissionID = msg.SubmissionID
	}
	if err := notifier.Notify(ctx, n); err != nil {
		if errors.Is(err, notify.ErrNoRecipient) {
			return ErrInvalidMessage{Meta: ComputeMeta(body), SubmissionID: msg.SubmissionID, RequestID: msg.RequestID, Err: err}
		}
		return ErrProcess{SubmissionID: msg.SubmissionID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
