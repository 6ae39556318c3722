package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"photoreq-backend/internal/notify"
)

// CurrentVersion is the payload version written by Send.
const CurrentVersion = 1

// ErrMissingSubmissionID is returned for messages without a submission id.
var ErrMissingSubmissionID = errors.New("missing submission id")

// Message asks a worker to deliver the notification for one submission.
type Message struct {
	SubmissionID string              `json:"submissionId"`
	RequestID    string              `json:"requestId"`
	EnqueuedAt   string              `json:"enqueuedAt"`
	Version      int                 `json:"version"`
	Notification notify.Notification `json:"notification"`
}

// Validate checks the fields a worker needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.SubmissionID) == "" {
		return ErrMissingSubmissionID
	}
	if strings.TrimSpace(m.Notification.To) == "" {
		return notify.ErrNoRecipient
	}
	return nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
