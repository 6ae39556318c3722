package agent

import (
	"strings"
	"testing"

	"photoreq-backend/internal/requests"
)

func TestEmailTemplate(t *testing.T) {
	req := requests.PhotoRequest{
		ClientName:   `<script>alert("x")</script>`,
		Requirements: []requests.PhotoRequirement{{ID: "1", Label: "Front of House"}, {ID: "2", Label: "Pool & Gate"}},
	}
	link := "https://photos.example.com/#/upload?data=abc"

	html, err := EmailTemplate(DefaultBranding, req, link)
	if err != nil {
		t.Fatalf("EmailTemplate: %v", err)
	}
	for _, want := range []string{
		"Bill Layne Insurance",
		"your policy",
		"your property",
		`href="https://photos.example.com/#/upload?data=abc"`,
		"<li style=\"margin-bottom: 4px;\">Front of House</li>",
		"Pool &amp; Gate",
		"&lt;script&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("email missing %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("client name was not escaped")
	}

	bad, err := EmailTemplate(DefaultBranding, req, "javascript:alert(1)")
	if err != nil {
		t.Fatalf("EmailTemplate: %v", err)
	}
	if strings.Contains(bad, `href="javascript:`) {
		t.Fatalf("non-http link used as href")
	}
}

func TestSMSLink(t *testing.T) {
	req := requests.PhotoRequest{ClientName: "Ann", InsuranceCompany: "Travelers"}
	body := SMSBody(req, "https://x.test/#/upload?data=T")
	if body != "Hi Ann, please upload your Travelers insurance photos here: https://x.test/#/upload?data=T" {
		t.Fatalf("unexpected body %q", body)
	}
	got := SMSLink("+1 (336) 555-0100", body)
	want := "sms:+13365550100?body=Hi%20Ann%2C%20please%20upload%20your%20Travelers%20insurance%20photos%20here%3A%20https%3A%2F%2Fx.test%2F%23%2Fupload%3Fdata%3DT"
	if got != want {
		t.Fatalf("SMSLink = %q\nwant     %q", got, want)
	}
}

func TestGmailComposeURL(t *testing.T) {
	req := requests.PhotoRequest{ClientName: "Ann", Address: "1 Main St", InsuranceCompany: "Foremost"}
	subject := EmailSubject(req)
	if subject != "Photo Request for 1 Main St - Foremost" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if got := EmailSubject(requests.PhotoRequest{ClientName: "Ann", InsuranceCompany: "Foremost"}); got != "Photo Request for Ann - Foremost" {
		t.Fatalf("subject should fall back to client name, got %q", got)
	}
	got := GmailComposeURL("ann+home@example.com", subject)
	want := "https://mail.google.com/mail/?view=cm&fs=1&to=ann%2Bhome%40example.com&su=Photo%20Request%20for%201%20Main%20St%20-%20Foremost"
	if got != want {
		t.Fatalf("GmailComposeURL = %q\nwant %q", got, want)
	}
}
