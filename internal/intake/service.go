package intake

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/queue"
	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/storage/object"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/shared/util"
)

// Service stores submissions. Receive calls are serialized so the sheet and
// folder writes of two submissions never interleave.
type Service struct {
	Store object.ObjectStore
	Repo  SubmissionRepo
	// Queue, when set, defers notification delivery to a worker. Otherwise
	// Notifier is called inline.
	Queue    queue.Client
	Notifier notify.Notifier
	NotifyTo string
	Now      func() time.Time

	mu sync.Mutex
}

type decodedFile struct {
	name        string
	contentType string
	data        []byte
}

// Receive saves every file under one folder, appends one row to the log and
// sends exactly one notification.
func (s *Service) Receive(ctx context.Context, p Payload, requestID string) (Submission, error) {
	files, err := decodeFiles(p.Files)
	if err != nil {
		return Submission{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	at := now().UTC()
	folderKey := util.PathSegment(FolderName(p.ClientName, p.Address, at))
	if folderKey == "" {
		return Submission{}, ErrInvalidPayload
	}

	for _, f := range files {
		key := folderKey + "/" + f.name
		if _, err := s.Store.Put(ctx, key, f.contentType, bytes.NewReader(f.data)); err != nil {
			return Submission{}, fmt.Errorf("store %s: %w", f.name, err)
		}
	}

	sub := Submission{
		ID:               ulid.Make().String(),
		ReceivedAt:       at,
		ClientName:       p.ClientName,
		PolicyNumber:     p.PolicyNumber,
		InsuranceCompany: p.InsuranceCompany,
		Address:          p.Address,
		ClientPhone:      p.ClientPhone,
		AgentEmail:       p.AgentEmail,
		FolderKey:        folderKey,
		FolderURL:        s.Store.Location(folderKey),
		PhotoCount:       len(files),
		Status:           StatusReceived,
	}
	if err := s.Repo.Append(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("append submission: %w", err)
	}

	if err := s.notify(ctx, sub, requestID); err != nil {
		metrics.IncNotifyFailed()
		return Submission{}, err
	}

	telemetry.Info("intake.received", map[string]any{
		"submission_id": sub.ID,
		"request_id":    requestID,
		"photos":        sub.PhotoCount,
		"folder":        sub.FolderKey,
	})
	return sub, nil
}

// Recent lists the latest submissions.
func (s *Service) Recent(ctx context.Context, limit int) ([]Submission, error) {
	return s.Repo.List(ctx, limit)
}

func (s *Service) notify(ctx context.Context, sub Submission, requestID string) error {
	n := notify.Notification{
		SubmissionID: sub.ID,
		ClientName:   sub.ClientName,
		Address:      sub.Address,
		Carrier:      sub.InsuranceCompany,
		PhotoCount:   sub.PhotoCount,
		FolderURL:    sub.FolderURL,
		To:           s.NotifyTo,
		ReceivedAt:   sub.ReceivedAt,
	}
	if l, ok := s.Repo.(locator); ok {
		n.SheetURL = l.Location()
	}

	if s.Queue != nil {
		msg := queue.Message{
			SubmissionID: sub.ID,
			RequestID:    requestID,
			EnqueuedAt:   sub.ReceivedAt.Format(time.RFC3339),
			Version:      queue.CurrentVersion,
			Notification: n,
		}
		if err := s.Queue.Send(ctx, msg); err != nil {
			return fmt.Errorf("enqueue notification: %w", err)
		}
		return nil
	}

	notifier := s.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	if err := notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	metrics.IncNotifySent()
	return nil
}

func decodeFiles(in []receiver.File) ([]decodedFile, error) {
	out := make([]decodedFile, 0, len(in))
	for i, f := range in {
		data, err := decodeData(f.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFile, f.Name, err)
		}
		contentType := strings.TrimSpace(f.MimeType)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		out = append(out, decodedFile{
			name:        util.FileNameOr(f.Name, fmt.Sprintf("photo_%d", i+1)),
			contentType: contentType,
			data:        data,
		})
	}
	return out, nil
}

// decodeData accepts raw base64 or a data URL.
func decodeData(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if idx := strings.IndexByte(s, ','); idx >= 0 {
			s = s[idx+1:]
		}
	}
	return base64.StdEncoding.DecodeString(s)
}
