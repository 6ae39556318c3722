package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"photoreq-backend/internal/bootstrap"
	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/shared/config"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	notifier notify.Notifier
)

func initApp() {
	notifier = bootstrap.BuildNotifier(config.Load())
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	return handleEvent(ctx, notifier, event), nil
}

// handleEvent reports retryable failures only; unrecoverable messages are
// logged and dropped so they do not block the batch.
func handleEvent(ctx context.Context, n notify.Notifier, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		fields := map[string]any{"sqs_message_id": record.MessageId}
		err := workerproc.HandleMessage(ctx, n, record.Body)
		switch {
		case err == nil:
			metrics.IncNotifySent()
			telemetry.Info("worker.notify.completed", fields)
		case workerproc.Unrecoverable(err):
			fields["error"] = err.Error()
			telemetry.Error("worker.notify.dropped", fields)
		default:
			fields["error"] = err.Error()
			telemetry.Error("worker.notify.failed", fields)
			metrics.IncNotifyFailed()
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
