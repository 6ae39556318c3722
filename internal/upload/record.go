package upload

import "time"

// Status is the verification state of one requirement's photo.
type Status string

const (
	StatusAnalyzing Status = "ANALYZING"
	StatusVerified  Status = "VERIFIED"
	StatusRejected  Status = "REJECTED"
	StatusPending   Status = "PENDING"
)

// SourceImage is the photo exactly as the client supplied it.
type SourceImage struct {
	FileName string
	MimeType string
	Data     []byte
}

// Record is the upload state of one requirement. Records are values; updates
// go through the With* methods and are stored back by the orchestrator.
type Record struct {
	RequirementID string
	Source        SourceImage
	Status        Status
	Feedback      string
	CapturedAt    time.Time

	generation uint64
	preview    Preview
}

// WithStatus returns a copy with the status replaced.
func (r Record) WithStatus(s Status) Record {
	r.Status = s
	return r
}

// WithFeedback returns a copy with the feedback replaced.
func (r Record) WithFeedback(f string) Record {
	r.Feedback = f
	return r
}

// Counted reports whether the record completes its requirement for progress.
func (r Record) Counted() bool {
	return r.Status == StatusVerified || r.Status == StatusPending
}

// PreviewPath is the local preview handle, or "" when previews are disabled.
func (r Record) PreviewPath() string {
	if r.preview == nil {
		return ""
	}
	return r.preview.Path()
}

// Generation is the capture counter value this record was created with.
func (r Record) Generation() uint64 {
	return r.generation
}
