package intake

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory implementation of SubmissionRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data []Submission
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Append records a submission.
func (r *MemoryRepo) Append(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, sub)
	return nil
}

// List returns submissions newest first.
func (r *MemoryRepo) List(ctx context.Context, limit int) ([]Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = clampLimit(limit)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Submission, 0, min(limit, len(r.data)))
	for i := len(r.data) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.data[i])
	}
	return out, nil
}

var _ SubmissionRepo = (*MemoryRepo)(nil)
