package requests

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PhotoRequirement is one named photo the client must or may supply.
type PhotoRequirement struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	IsMandatory bool   `json:"isMandatory"`
}

// PhotoRequest is everything a client link carries. It is built by the agent,
// serialized once into a link and read back without mutation.
type PhotoRequest struct {
	ClientName       string             `json:"clientName"`
	PolicyNumber     string             `json:"policyNumber"`
	InsuranceCompany string             `json:"insuranceCompany,omitempty"`
	Address          string             `json:"address"`
	Requirements     []PhotoRequirement `json:"requirements"`
	AgentEmail       string             `json:"agentEmail,omitempty"`
}

var (
	ErrClientNameRequired     = errors.New("client name is required")
	ErrNoRequirements         = errors.New("at least one photo requirement is required")
	ErrRequirementIDRequired  = errors.New("requirement id is required")
	ErrDuplicateRequirementID = errors.New("duplicate requirement id")
)

// Validate checks the invariants a request must hold before a link is issued.
func Validate(req PhotoRequest) error {
	var errs []error
	if strings.TrimSpace(req.ClientName) == "" {
		errs = append(errs, ErrClientNameRequired)
	}
	if len(req.Requirements) == 0 {
		errs = append(errs, ErrNoRequirements)
	}
	seen := make(map[string]struct{}, len(req.Requirements))
	for i, r := range req.Requirements {
		if strings.TrimSpace(r.ID) == "" {
			errs = append(errs, fmt.Errorf("requirement %d: %w", i, ErrRequirementIDRequired))
			continue
		}
		if _, dup := seen[r.ID]; dup {
			errs = append(errs, fmt.Errorf("requirement %q: %w", r.ID, ErrDuplicateRequirementID))
			continue
		}
		seen[r.ID] = struct{}{}
	}
	return errors.Join(errs...)
}

// Requirement looks up a requirement by id.
func (r PhotoRequest) Requirement(id string) (PhotoRequirement, bool) {
	for _, req := range r.Requirements {
		if req.ID == id {
			return req, true
		}
	}
	return PhotoRequirement{}, false
}

// NewRequirementID returns ids in the dashboard's format: req_<ms> for manual
// entries, <prefix>_<ms>_<i> for batches.
func NewRequirementID(prefix string, now time.Time, i int) string {
	if prefix == "" {
		prefix = "req"
	}
	ms := now.UnixMilli()
	if i < 0 {
		return fmt.Sprintf("%s_%d", prefix, ms)
	}
	return fmt.Sprintf("%s_%d_%d", prefix, ms, i)
}
