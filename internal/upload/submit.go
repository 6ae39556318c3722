package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"photoreq-backend/internal/imaging"
	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/shared/util"
)

const (
	base36Upper        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	confirmationRandom = 6
)

// Submit compresses every captured photo and sends them to the receiver in
// one call. On failure nothing changes and the caller may retry. Photos still
// being graded are submitted as they are.
func (o *Orchestrator) Submit(ctx context.Context) (Receipt, error) {
	o.mu.Lock()
	if err := o.acceptingChangesLocked(); err != nil {
		o.mu.Unlock()
		return Receipt{}, err
	}
	if len(o.records) == 0 {
		o.mu.Unlock()
		return Receipt{}, ErrNothingToSubmit
	}
	if o.opts.Receiver == nil || !o.opts.Receiver.Configured() {
		o.mu.Unlock()
		metrics.IncSubmit("not_configured")
		telemetry.Error("upload.submit.not_configured", map[string]any{"clientName": o.req.ClientName})
		return Receipt{}, receiver.ErrNotConfigured
	}
	snapshot := o.recordsLocked()
	o.submitting = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	start := time.Now()
	receipt, err := o.send(ctx, snapshot)
	metrics.ObserveSubmitDurationMs(metrics.SinceMillis(start))
	if err != nil {
		metrics.IncSubmit("failed")
		telemetry.Error("upload.submit.failed", map[string]any{
			"files": len(snapshot),
			"err":   err,
		})
		return Receipt{}, err
	}

	o.mu.Lock()
	o.receipt = &receipt
	o.mu.Unlock()

	metrics.IncSubmit("succeeded")
	telemetry.Info("upload.submit.succeeded", map[string]any{
		"confirmationId": receipt.ConfirmationID,
		"receiverId":     receipt.ReceiverID,
		"files":          receipt.Files,
	})
	return receipt, nil
}

func (o *Orchestrator) send(ctx context.Context, records []Record) (Receipt, error) {
	now := o.opts.Now()
	confirmationID, err := NewConfirmationID(o.opts.ConfirmationPrefix, now, o.opts.Rand)
	if err != nil {
		return Receipt{}, err
	}
	payload, err := BuildPayload(ctx, o.req, records, confirmationID, o.opts.DefaultAgentEmail, o.opts.CompressWorkers)
	if err != nil {
		return Receipt{}, err
	}
	receiverID, err := o.opts.Receiver.Send(ctx, payload)
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{
		ConfirmationID: confirmationID,
		ReceiverID:     receiverID,
		Files:          len(payload.Files),
		SubmittedAt:    now,
	}, nil
}

// BuildPayload compresses the records at the batch quality and assembles the
// receiver request. Files keep record order; each is labelled with its
// requirement id.
func BuildPayload(ctx context.Context, req requests.PhotoRequest, records []Record, confirmationID, defaultAgentEmail string, workers int) (receiver.Payload, error) {
	quality := imaging.QualityForBatch(len(records))
	files := make([]receiver.File, len(records))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, rec := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := encodeFile(rec, quality)
			if err != nil {
				return fmt.Errorf("prepare %s: %w", rec.RequirementID, err)
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return receiver.Payload{}, err
	}

	agentEmail := strings.TrimSpace(req.AgentEmail)
	if agentEmail == "" {
		agentEmail = defaultAgentEmail
	}
	return receiver.Payload{
		ClientName:       fmt.Sprintf("%s (Ref: %s)", req.ClientName, confirmationID),
		PolicyNumber:     req.PolicyNumber,
		InsuranceCompany: req.InsuranceCompany,
		Address:          req.Address,
		AgentEmail:       agentEmail,
		Files:            files,
	}, nil
}

// encodeFile compresses one photo. Formats the decoder does not know (HEIC
// from some phones) are forwarded untouched; images over the pixel budget
// fail the submission.
func encodeFile(rec Record, quality float64) (receiver.File, error) {
	data, mime := rec.Source.Data, rec.Source.MimeType
	out, err := imaging.Compress(rec.Source.Data, quality)
	switch {
	case err == nil:
		data, mime = out.Data, out.MimeType
	case errors.Is(err, ErrImageTooLarge):
		return receiver.File{}, err
	case errors.Is(err, imaging.ErrUnsupportedImage):
		telemetry.Warn("upload.compress.passthrough", map[string]any{
			"requirementId": rec.RequirementID,
			"mimeType":      mime,
		})
	default:
		return receiver.File{}, err
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	name := util.FileNameOr(rec.Source.FileName, "photo.jpg")
	return receiver.File{
		Name:     rec.RequirementID + "_" + name,
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
		Label:    rec.RequirementID,
	}, nil
}

// NewConfirmationID returns "<prefix>-<6 random base36 chars>-<last 4 digits
// of the unix millisecond clock>". It is a human reference, not a secret.
func NewConfirmationID(prefix string, now time.Time, r io.Reader) (string, error) {
	if prefix == "" {
		prefix = defaultConfirmationPrefix
	}
	suffix, err := randomBase36(r, confirmationRandom)
	if err != nil {
		return "", fmt.Errorf("confirmation id: %w", err)
	}
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 4 {
		ms = ms[len(ms)-4:]
	}
	return prefix + "-" + suffix + "-" + ms, nil
}

func randomBase36(r io.Reader, n int) (string, error) {
	// 252 is the largest multiple of 36 below 256.
	const limit = 252
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, base36Upper[b%36])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
