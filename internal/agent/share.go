package agent

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"photoreq-backend/internal/requests"
)

var (
	//go:embed templates/request_email.html
	requestEmailHTML string

	requestEmail = template.Must(template.New("request_email").Parse(requestEmailHTML))
)

// Branding names the agency in client-facing messages.
type Branding struct {
	Agency  string
	Tagline string
}

// DefaultBranding is used when no branding is configured.
var DefaultBranding = Branding{Agency: "Bill Layne Insurance", Tagline: "Elkin's Trusted Agency"}

type emailData struct {
	Branding
	ClientName string
	Carrier    string
	Address    string
	Link       template.URL
	Items      []string
}

// EmailTemplate renders the HTML invitation for a request. All request fields
// are escaped.
func EmailTemplate(b Branding, req requests.PhotoRequest, link string) (string, error) {
	data := emailData{
		Branding:   b,
		ClientName: req.ClientName,
		Carrier:    valueOr(req.InsuranceCompany, "your policy"),
		Address:    valueOr(req.Address, "your property"),
		Link:       safeLink(link),
	}
	for _, r := range req.Requirements {
		data.Items = append(data.Items, r.Label)
	}
	var buf bytes.Buffer
	if err := requestEmail.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

// EmailSubject is the subject line used for the invitation.
func EmailSubject(req requests.PhotoRequest) string {
	return fmt.Sprintf("Photo Request for %s - %s", valueOr(req.Address, req.ClientName), req.InsuranceCompany)
}

// SMSBody is the text message sent with the link.
func SMSBody(req requests.PhotoRequest, link string) string {
	return fmt.Sprintf("Hi %s, please upload your %s insurance photos here: %s", req.ClientName, req.InsuranceCompany, link)
}

// SMSLink returns an sms: URI for the phone number with the body prefilled.
// Everything except digits and "+" is stripped from the number.
func SMSLink(phone, body string) string {
	number := strings.Map(func(r rune) rune {
		if r == '+' || ('0' <= r && r <= '9') {
			return r
		}
		return -1
	}, phone)
	return "sms:" + number + "?body=" + escapeComponent(body)
}

// GmailComposeURL opens a Gmail compose window addressed to the client.
func GmailComposeURL(to, subject string) string {
	return "https://mail.google.com/mail/?view=cm&fs=1&to=" + escapeComponent(to) + "&su=" + escapeComponent(subject)
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// safeLink only trusts http(s) links as href targets.
func safeLink(link string) template.URL {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return template.URL("#")
	}
	return template.URL(link)
}

func valueOr(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
