package workerproc

import (
	"context"
	"errors"
	"testing"

	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/queue"
)

type recordingNotifier struct {
	got []notify.Notification
	err error
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func body(t *testing.T, msg queue.Message) string {
	t.Helper()
	raw, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}

func TestParseMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		body          string
		wantErr       bool
		unrecoverable bool
	}{
		{name: "empty", body: "  ", wantErr: true, unrecoverable: true},
		{name: "not json", body: "{", wantErr: true, unrecoverable: true},
		{name: "missing submission id", body: `{"notification":{"to":"a@b.c"}}`, wantErr: true, unrecoverable: true},
		{name: "missing recipient", body: `{"submissionId":"s1"}`, wantErr: true, unrecoverable: true},
		{name: "valid", body: `{"submissionId":"s1","notification":{"to":"a@b.c"}}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, meta, err := ParseMessage(tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessage err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && Unrecoverable(err) != tt.unrecoverable {
				t.Fatalf("Unrecoverable(%v) = %v", err, !tt.unrecoverable)
			}
			if !tt.wantErr && msg.SubmissionID != "s1" {
				t.Fatalf("unexpected message %+v", msg)
			}
			if meta.BodyLen != len(tt.body) {
				t.Fatalf("BodyLen = %d", meta.BodyLen)
			}
		})
	}
}

func TestHandleMessageDelivers(t *testing.T) {
	n := &recordingNotifier{}
	b := body(t, queue.Message{SubmissionID: "s1", Notification: notify.Notification{To: "a@b.c", ClientName: "Jane"}})

	if err := HandleMessage(context.Background(), n, b); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(n.got) != 1 || n.got[0].SubmissionID != "s1" || n.got[0].ClientName != "Jane" {
		t.Fatalf("unexpected deliveries %+v", n.got)
	}
}

func TestHandleMessageUsesParsedContext(t *testing.T) {
	n := &recordingNotifier{}
	msg := queue.Message{SubmissionID: "ctx", Notification: notify.Notification{To: "a@b.c"}}
	ctx := WithParsedMessage(context.Background(), msg)

	if err := HandleMessage(ctx, n, "ignored"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(n.got) != 1 || n.got[0].SubmissionID != "ctx" {
		t.Fatalf("expected parsed message to be reused, got %+v", n.got)
	}
}

func TestHandleMessageFailureIsRetryable(t *testing.T) {
	n := &recordingNotifier{err: errors.New("relay down")}
	b := body(t, queue.Message{SubmissionID: "s1", RequestID: "r1", Notification: notify.Notification{To: "a@b.c"}})

	err := HandleMessage(context.Background(), n, b)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.SubmissionID != "s1" || procErr.RequestID != "r1" {
		t.Fatalf("unexpected ids %+v", procErr)
	}
	if Unrecoverable(err) {
		t.Fatalf("delivery failures should be retried")
	}
	if err := HandleMessage(context.Background(), nil, b); err == nil {
		t.Fatalf("expected error without notifier")
	}
}
