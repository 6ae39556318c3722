// Package agent backs the agent dashboard: sign-in, link generation with
// ready-to-send email and SMS content, and document auto-fill.
package agent

import (
	"strings"
	"time"

	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/requests"
)

// LinkForm is the dashboard form. ClientEmail and ClientPhone are used to
// address the invitation and never enter the link.
type LinkForm struct {
	ClientName    string                      `json:"clientName"`
	PolicyNumber  string                      `json:"policyNumber"`
	Address       string                      `json:"address"`
	ClientEmail   string                      `json:"clientEmail"`
	ClientPhone   string                      `json:"clientPhone"`
	Carrier       string                      `json:"carrier"`
	CustomCarrier string                      `json:"customCarrier"`
	AgentEmail    string                      `json:"agentEmail"`
	Requirements  []requests.PhotoRequirement `json:"requirements"`
}

// CarrierName resolves the "Other" selection to the custom carrier.
func (f LinkForm) CarrierName() string {
	return requests.ResolveCarrier(f.Carrier, f.CustomCarrier)
}

// Request builds and validates the photo request carried by the link.
func (f LinkForm) Request(agentEmail string) (requests.PhotoRequest, error) {
	req := requests.PhotoRequest{
		ClientName:       strings.TrimSpace(f.ClientName),
		PolicyNumber:     strings.TrimSpace(f.PolicyNumber),
		InsuranceCompany: f.CarrierName(),
		Address:          strings.TrimSpace(f.Address),
		AgentEmail:       strings.TrimSpace(agentEmail),
		Requirements:     make([]requests.PhotoRequirement, 0, len(f.Requirements)),
	}
	for _, r := range f.Requirements {
		r.ID = strings.TrimSpace(r.ID)
		r.Label = strings.TrimSpace(r.Label)
		r.Description = strings.TrimSpace(r.Description)
		req.Requirements = append(req.Requirements, r)
	}
	if err := requests.Validate(req); err != nil {
		return requests.PhotoRequest{}, err
	}
	return req, nil
}

// Merge copies the fields a parsed document actually carries into the form.
// Parsed requirements replace the form's list and get fresh ids.
func Merge(form LinkForm, parsed llm.ParsedDocument, now time.Time) LinkForm {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&form.ClientName, parsed.ClientName)
	set(&form.PolicyNumber, parsed.PolicyNumber)
	set(&form.Address, parsed.Address)
	set(&form.ClientEmail, parsed.ClientEmail)
	set(&form.ClientPhone, parsed.ClientPhone)

	if len(parsed.Requirements) > 0 {
		reqs := make([]requests.PhotoRequirement, 0, len(parsed.Requirements))
		for i, p := range parsed.Requirements {
			reqs = append(reqs, requests.PhotoRequirement{
				ID:          requests.NewRequirementID("auto", now, i),
				Label:       p.Label,
				Description: p.Description,
				IsMandatory: p.IsMandatory,
			})
		}
		form.Requirements = reqs
	}
	return form
}
