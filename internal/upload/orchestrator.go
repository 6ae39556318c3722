// Package upload tracks the photos a client captures for one photo request,
// grades each one in the background and submits the batch to the receiver.
package upload

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"photoreq-backend/internal/imaging"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/telemetry"
)

const (
	defaultConfirmationPrefix = "BLI"
	defaultCompressWorkers    = 4
)

// Options wires an orchestrator to its collaborators. Zero values fall back to
// safe defaults: no classifier means every photo is accepted unverified.
type Options struct {
	Classifier         llm.Classifier
	Receiver           receiver.Sender
	Previews           PreviewStore
	ConfirmationPrefix string
	DefaultAgentEmail  string
	CompressWorkers    int
	Now                func() time.Time
	Rand               io.Reader
	// OnChange is called after every stored record change. Calls are
	// serialized and never step back to an older generation of the same
	// requirement; a change that loses that race is not reported. OnChange
	// may read the orchestrator but must not call Capture.
	OnChange func(Record)
}

// Receipt describes an accepted submission.
type Receipt struct {
	ConfirmationID string
	ReceiverID     string
	Files          int
	SubmittedAt    time.Time
}

// Orchestrator owns the upload records of one client session. All methods are
// safe for concurrent use.
type Orchestrator struct {
	req  requests.PhotoRequest
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	records     map[string]Record
	generations map[string]uint64
	closed      bool
	submitting  bool
	receipt     *Receipt

	notifyMu sync.Mutex
	notified map[string]uint64

	// discarded observes stale classifier results; set by tests.
	discarded func(requirementID string, gen uint64)
}

// New validates the request and returns an orchestrator with no uploads.
func New(req requests.PhotoRequest, opts Options) (*Orchestrator, error) {
	if err := requests.Validate(req); err != nil {
		return nil, fmt.Errorf("new upload session: %w", err)
	}
	if opts.Classifier == nil {
		opts.Classifier = llm.Disabled{}
	}
	if opts.Previews == nil {
		opts.Previews = NopPreviews{}
	}
	if opts.ConfirmationPrefix == "" {
		opts.ConfirmationPrefix = defaultConfirmationPrefix
	}
	if opts.CompressWorkers <= 0 {
		opts.CompressWorkers = defaultCompressWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		req:         req,
		opts:        opts,
		ctx:         ctx,
		cancel:      cancel,
		records:     make(map[string]Record, len(req.Requirements)),
		generations: make(map[string]uint64, len(req.Requirements)),
		notified:    make(map[string]uint64, len(req.Requirements)),
	}, nil
}

// Request returns the decoded request this session serves.
func (o *Orchestrator) Request() requests.PhotoRequest {
	return o.req
}

// Capture stores a new photo for a requirement in ANALYZING state and starts
// grading it. A capture replaces any earlier record for the same requirement;
// a grade that arrives for a replaced capture is discarded.
func (o *Orchestrator) Capture(requirementID string, img SourceImage) (Record, error) {
	requirement, ok := o.req.Requirement(requirementID)
	if !ok {
		return Record{}, ErrUnknownRequirement
	}
	if len(img.Data) == 0 {
		return Record{}, ErrEmptyImage
	}
	// Formats without a registered decoder pass; submit forwards them as-is.
	if _, err := imaging.CheckDimensions(img.Data); errors.Is(err, ErrImageTooLarge) {
		telemetry.Warn("upload.capture.too_large", map[string]any{
			"requirementId": requirementID,
			"bytes":         len(img.Data),
			"err":           err,
		})
		return Record{}, err
	}
	if err := o.acceptingChanges(); err != nil {
		return Record{}, err
	}

	preview, err := o.opts.Previews.Create(requirementID, img)
	if err != nil {
		telemetry.Warn("upload.preview.failed", map[string]any{
			"requirementId": requirementID,
			"err":           err,
		})
		preview = nil
	}

	o.mu.Lock()
	if err := o.acceptingChangesLocked(); err != nil {
		o.mu.Unlock()
		_ = releasePreview(preview)
		return Record{}, err
	}
	gen := o.generations[requirementID] + 1
	o.generations[requirementID] = gen
	previous, hadPrevious := o.records[requirementID]
	rec := Record{
		RequirementID: requirementID,
		Source:        img,
		Status:        StatusAnalyzing,
		CapturedAt:    o.opts.Now(),
		generation:    gen,
		preview:       preview,
	}
	o.records[requirementID] = rec
	o.wg.Add(1)
	o.mu.Unlock()

	if hadPrevious {
		if err := releasePreview(previous.preview); err != nil {
			telemetry.Warn("upload.preview.release_failed", map[string]any{"requirementId": requirementID, "err": err})
		}
	}

	metrics.IncCaptureStarted()
	telemetry.Info("upload.capture.started", map[string]any{
		"requirementId": requirementID,
		"generation":    gen,
		"bytes":         len(img.Data),
		"mimeType":      img.MimeType,
	})
	o.notify(rec)

	go o.classify(requirementID, requirement.Label, gen, img)
	return rec, nil
}

func (o *Orchestrator) classify(requirementID, label string, gen uint64, img SourceImage) {
	defer o.wg.Done()

	verdict, err := o.callClassifier(label, img)
	if o.ctx.Err() != nil {
		return
	}

	o.mu.Lock()
	current, ok := o.records[requirementID]
	if !ok || current.generation != gen || o.closed {
		o.mu.Unlock()
		metrics.IncClassification("discarded")
		telemetry.Info("upload.classify.discarded", map[string]any{
			"requirementId": requirementID,
			"generation":    gen,
		})
		if o.discarded != nil {
			o.discarded(requirementID, gen)
		}
		return
	}
	var updated Record
	if err != nil {
		updated = current.WithStatus(StatusPending).WithFeedback(classifierFailedFeedback)
	} else if verdict.IsValid {
		updated = current.WithStatus(StatusVerified).WithFeedback(verdict.Feedback)
	} else {
		updated = current.WithStatus(StatusRejected).WithFeedback(verdict.Feedback)
	}
	o.records[requirementID] = updated
	o.mu.Unlock()

	if err != nil {
		metrics.IncClassification("pending")
		telemetry.Warn("upload.classify.failed", map[string]any{
			"requirementId": requirementID,
			"generation":    gen,
			"err":           err,
		})
	} else if verdict.IsValid {
		metrics.IncClassification("verified")
	} else {
		metrics.IncClassification("rejected")
	}
	o.notify(updated)
}

// callClassifier turns a panicking provider into an ordinary failure.
func (o *Orchestrator) callClassifier(label string, img SourceImage) (verdict llm.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()
	return o.opts.Classifier.Classify(o.ctx, llm.Image{Data: img.Data, MimeType: img.MimeType}, label)
}

// notify runs outside o.mu, so two captures of one requirement can reach it
// in either order.
func (o *Orchestrator) notify(rec Record) {
	if o.opts.OnChange == nil {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if rec.generation < o.notified[rec.RequirementID] {
		return
	}
	o.notified[rec.RequirementID] = rec.generation
	o.opts.OnChange(rec)
}

func (o *Orchestrator) acceptingChanges() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.acceptingChangesLocked()
}

func (o *Orchestrator) acceptingChangesLocked() error {
	switch {
	case o.closed:
		return ErrClosed
	case o.receipt != nil:
		return ErrAlreadySubmitted
	case o.submitting:
		return ErrSubmitting
	}
	return nil
}

// Record returns the current record for a requirement.
func (o *Orchestrator) Record(requirementID string) (Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[requirementID]
	return rec, ok
}

// Records returns the current records in requirement order.
func (o *Orchestrator) Records() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recordsLocked()
}

func (o *Orchestrator) recordsLocked() []Record {
	out := make([]Record, 0, len(o.records))
	for _, r := range o.req.Requirements {
		if rec, ok := o.records[r.ID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// HasUploads reports whether at least one photo has been captured.
func (o *Orchestrator) HasUploads() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.records) > 0
}

// ProgressFraction is the share of requirements whose photo is VERIFIED or
// PENDING. Rejected and analyzing photos do not count.
func (o *Orchestrator) ProgressFraction() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return progressOf(o.req.Requirements, o.records)
}

// Progress is ProgressFraction as a rounded percentage.
func (o *Orchestrator) Progress() int {
	return int(math.Round(o.ProgressFraction() * 100))
}

func progressOf(reqs []requests.PhotoRequirement, records map[string]Record) float64 {
	if len(reqs) == 0 {
		return 0
	}
	counted := 0
	for _, r := range reqs {
		if rec, ok := records[r.ID]; ok && rec.Counted() {
			counted++
		}
	}
	return float64(counted) / float64(len(reqs))
}

// Submitting reports whether a Submit call is waiting on the receiver.
func (o *Orchestrator) Submitting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitting
}

// Receipt returns the receipt of a completed submission.
func (o *Orchestrator) Receipt() (Receipt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.receipt == nil {
		return Receipt{}, false
	}
	return *o.receipt, true
}

// Wait blocks until every in-flight classification has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close abandons in-flight classifications, waits for them to return and
// releases every preview. It is safe to call more than once.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.cancel()
	var previews []Preview
	for _, rec := range o.records {
		if rec.preview != nil {
			previews = append(previews, rec.preview)
		}
	}
	o.mu.Unlock()

	o.wg.Wait()

	var errs []error
	for _, p := range previews {
		if err := p.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
