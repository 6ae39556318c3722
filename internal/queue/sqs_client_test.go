package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"photoreq-backend/internal/notify"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSClientSend(t *testing.T) {
	fake := &fakeSQS{}
	client := newSQSClient(fake, "https://sqs.local/queue")
	client.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	msg := Message{SubmissionID: "s1", Notification: notify.Notification{To: "a@b.c", ClientName: "Jane"}}
	if err := client.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if aws.ToString(in.QueueUrl) != "https://sqs.local/queue" {
		t.Fatalf("unexpected queue url %q", aws.ToString(in.QueueUrl))
	}
	got, err := DecodeMessage([]byte(aws.ToString(in.MessageBody)))
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.Version != CurrentVersion || got.EnqueuedAt != "2026-03-01T12:00:00Z" || got.Notification.ClientName != "Jane" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestSQSClientSendErrors(t *testing.T) {
	fake := &fakeSQS{err: errors.New("throttled")}
	client := newSQSClient(fake, "q")

	if err := client.Send(context.Background(), Message{}); !errors.Is(err, ErrMissingSubmissionID) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(fake.inputs) != 0 {
		t.Fatalf("invalid message must not be sent")
	}
	err := client.Send(context.Background(), Message{SubmissionID: "s1", Notification: notify.Notification{To: "a@b.c"}})
	if err == nil || !errors.Is(err, fake.err) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}
