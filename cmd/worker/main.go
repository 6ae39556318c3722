// Command worker delivers queued agency notifications. It long-polls the
// notification queue, sends each message through the configured notifier and
// deletes it once delivered.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"photoreq-backend/internal/bootstrap"
	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/shared/config"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/workerproc"
)

const (
	defaultRegion             = "us-east-1"
	defaultVisibilitySeconds  = 120
	defaultWorkerConcurrency  = 4
	defaultMaxAttempts        = 5
	defaultShutdownTimeoutSec = 30
	receiveCountAttribute     = "ApproximateReceiveCount"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// poller owns one queue and one notifier. A message that still fails once its
// receive count reaches maxAttempts is logged and dropped.
type poller struct {
	client      sqsAPI
	queueURL    string
	notifier    notify.Notifier
	visibility  int32
	maxAttempts int
}

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.NotifyQueueURL)
	if queueURL == "" {
		log.Fatal("NOTIFY_QUEUE_URL is required")
	}
	region := cfg.AWSRegion
	if region == "" {
		region = defaultRegion
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	p := &poller{
		client:      sqs.NewFromConfig(awsCfg),
		queueURL:    queueURL,
		notifier:    bootstrap.BuildNotifier(cfg),
		visibility:  int32(envInt("WORKER_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)),
		maxAttempts: envInt("WORKER_MAX_ATTEMPTS", defaultMaxAttempts),
	}
	concurrency := max(1, envInt("WORKER_CONCURRENCY", defaultWorkerConcurrency))
	shutdownTimeout := time.Duration(envInt("WORKER_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	log.Printf("worker started queue=%s concurrency=%d visibility=%ds max_attempts=%d",
		queueURL, concurrency, p.visibility, p.maxAttempts)

	var g errgroup.Group
	g.SetLimit(concurrency)
	p.run(ctx, &g)

	log.Printf("shutdown requested, waiting up to %s for in-flight deliveries", shutdownTimeout)
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Printf("shutdown timeout reached; exiting with in-flight deliveries")
	}
}

// run polls until ctx is cancelled. Deliveries run on g and outlive the poll
// loop.
func (p *poller) run(ctx context.Context, g *errgroup.Group) {
	for ctx.Err() == nil {
		resp, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    aws.String(p.queueURL),
			MaxNumberOfMessages:         10,
			WaitTimeSeconds:             20,
			VisibilityTimeout:           p.visibility,
			MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}
		for _, msg := range resp.Messages {
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				p.handle(context.WithoutCancel(ctx), msg)
				return nil
			})
		}
	}
}

// handle delivers one message. Invalid messages are deleted; failed
// deliveries stay on the queue for redelivery until maxAttempts.
func (p *poller) handle(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	parsed, meta, err := workerproc.ParseMessage(body)
	fields := p.fields(msg, parsed.SubmissionID, parsed.RequestID)
	if err != nil {
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.invalid", fields)
		p.delete(ctx, msg, fields)
		return
	}

	telemetry.Info("worker.notify.received", fields)
	err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, parsed), p.notifier, body)
	switch {
	case err == nil:
		metrics.IncNotifySent()
		if p.delete(ctx, msg, fields) {
			telemetry.Info("worker.notify.completed", fields)
		}
	case workerproc.Unrecoverable(err):
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.invalid", fields)
		p.delete(ctx, msg, fields)
	case p.maxAttempts > 0 && receiveCount(msg) >= p.maxAttempts:
		fields["error"] = err.Error()
		telemetry.Error("worker.notify.abandoned", fields)
		metrics.IncNotifyFailed()
		p.delete(ctx, msg, fields)
	default:
		fields["error"] = err.Error()
		telemetry.Warn("worker.notify.failed", fields)
		metrics.IncNotifyFailed()
	}
}

func (p *poller) delete(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields["delete_error"] = "missing receipt handle"
		telemetry.Error("worker.notify.delete_failed", fields)
		return false
	}
	if _, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields["delete_error"] = err.Error()
		telemetry.Error("worker.notify.delete_failed", fields)
		return false
	}
	return true
}

func (p *poller) fields(msg sqstypes.Message, submissionID, requestID string) map[string]any {
	fields := map[string]any{
		"submission_id":  submissionID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[receiveCountAttribute])
	if err != nil {
		return 0
	}
	return n
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return val
}
