package intake

import (
	"context"

	"photoreq-backend/internal/receiver"
)

// LocalSender submits to the in-process intake service instead of over HTTP.
// It is selected with RECEIVER_URL=local.
type LocalSender struct {
	Svc *Service
}

// Configured reports whether a service is attached.
func (s LocalSender) Configured() bool {
	return s.Svc != nil
}

// Send stores the payload and returns the submission id. Failures surface as
// *receiver.RemoteError, the same as an {result:"error"} answer over HTTP.
func (s LocalSender) Send(ctx context.Context, p receiver.Payload) (string, error) {
	if !s.Configured() {
		return "", receiver.ErrNotConfigured
	}
	sub, err := s.Svc.Receive(ctx, Payload{Payload: p}, "")
	if err != nil {
		return "", &receiver.RemoteError{Message: err.Error()}
	}
	return sub.ID, nil
}

var _ receiver.Sender = LocalSender{}
