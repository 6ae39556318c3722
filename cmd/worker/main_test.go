package main

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeNotifier struct {
	err  error
	sent []notify.Notification
}

func (f *fakeNotifier) Notify(ctx context.Context, n notify.Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func message(id string, body string, attempt int) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{receiveCountAttribute: strconv.Itoa(attempt)},
	}
}

func newPoller(client sqsAPI, n notify.Notifier) *poller {
	return &poller{client: client, queueURL: "queue", notifier: n, maxAttempts: 3}
}

func validBody(t *testing.T) string {
	t.Helper()
	raw, err := queue.EncodeMessage(queue.Message{
		SubmissionID: "sub-1",
		RequestID:    "req-1",
		Notification: notify.Notification{To: "agent@example.com", ClientName: "Jane"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	n := &fakeNotifier{}

	newPoller(client, n).handle(context.Background(), message("m1", validBody(t), 1))

	if len(n.sent) != 1 || n.sent[0].SubmissionID != "sub-1" {
		t.Fatalf("expected one delivery, got %+v", n.sent)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r-m1" {
		t.Fatalf("expected delete, got %v", client.deleted)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	n := &fakeNotifier{err: errors.New("boom")}

	newPoller(client, n).handle(context.Background(), message("m2", validBody(t), 2))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesUnrecoverable(t *testing.T) {
	tests := map[string]string{
		"invalid json":   "{bad-json",
		"empty":          "",
		"missing id":     `{"notification":{"to":"a@b.c"}}`,
		"missing target": `{"submissionId":"s1"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			client := &fakeSQS{}
			n := &fakeNotifier{}
			newPoller(client, n).handle(context.Background(), message("m3", body, 1))
			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
			if len(n.sent) != 0 {
				t.Fatalf("expected no delivery")
			}
		})
	}
}

func TestWorkerAbandonsAfterMaxAttempts(t *testing.T) {
	client := &fakeSQS{}
	n := &fakeNotifier{err: errors.New("relay down")}

	newPoller(client, n).handle(context.Background(), message("m4", validBody(t), 3))

	if len(n.sent) != 1 {
		t.Fatalf("expected a final delivery attempt, got %d", len(n.sent))
	}
	if len(client.deleted) != 1 || client.deleted[0] != "r-m4" {
		t.Fatalf("expected the exhausted message to be deleted, got %v", client.deleted)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("missing attributes: got %d", got)
	}
	if got := receiveCount(message("m", "", 7)); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}
