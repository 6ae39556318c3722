package intake

import "context"

// SubmissionRepo is the append-only submission log.
type SubmissionRepo interface {
	Append(ctx context.Context, sub Submission) error
	// List returns the most recent submissions, newest first.
	List(ctx context.Context, limit int) ([]Submission, error)
}

// locator is implemented by logs that have a shareable location, such as the
// CSV sheet.
type locator interface {
	Location() string
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
