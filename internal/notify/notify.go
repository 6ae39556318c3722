// Package notify tells the agency that a client submitted photos.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"photoreq-backend/internal/shared/telemetry"
)

// ErrNoRecipient is returned when a notification has no address to go to.
var ErrNoRecipient = errors.New("notification has no recipient")

// Notification describes one received submission.
type Notification struct {
	SubmissionID string    `json:"submissionId"`
	ClientName   string    `json:"clientName"`
	Address      string    `json:"address"`
	Carrier      string    `json:"carrier"`
	PhotoCount   int       `json:"photoCount"`
	FolderURL    string    `json:"folderUrl"`
	SheetURL     string    `json:"sheetUrl,omitempty"`
	To           string    `json:"to"`
	ReceivedAt   time.Time `json:"receivedAt"`
}

// Subject is the email subject line.
func (n Notification) Subject() string {
	return "Photos Uploaded: " + n.ClientName
}

// Body is the plain-text email body.
func (n Notification) Body() string {
	carrier := n.Carrier
	if strings.TrimSpace(carrier) == "" {
		carrier = "N/A"
	}
	var b strings.Builder
	b.WriteString("New photos uploaded via MyInsurancePhoto.com\n\n")
	fmt.Fprintf(&b, "Client: %s\n", n.ClientName)
	fmt.Fprintf(&b, "Address: %s\n", n.Address)
	fmt.Fprintf(&b, "Carrier: %s\n", carrier)
	fmt.Fprintf(&b, "Photos: %d\n", n.PhotoCount)
	fmt.Fprintf(&b, "\nView Folder: %s", n.FolderURL)
	if n.SheetURL != "" {
		fmt.Fprintf(&b, "\nView Sheet: %s", n.SheetURL)
	}
	return b.String()
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends plain-text email through an SMTP relay.
type SMTPNotifier struct {
	Addr     string
	Username string
	Password string
	From     string

	sendMail sendMailFunc
}

// NewSMTPNotifier builds a notifier for host:port addr. Credentials are
// optional; PLAIN auth is used when a username is set.
func NewSMTPNotifier(addr, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{Addr: addr, Username: username, Password: password, From: from, sendMail: smtp.SendMail}
}

// Notify sends one email. smtp.SendMail does not take a context; cancellation
// is only checked before dialing.
func (s *SMTPNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := strings.TrimSpace(n.To)
	if to == "" {
		return ErrNoRecipient
	}
	var auth smtp.Auth
	if s.Username != "" {
		host, _, err := net.SplitHostPort(s.Addr)
		if err != nil {
			return fmt.Errorf("smtp addr: %w", err)
		}
		auth = smtp.PlainAuth("", s.Username, s.Password, host)
	}
	if err := s.sendMail(s.Addr, auth, s.From, []string{to}, s.message(to, n)); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (s *SMTPNotifier) message(to string, n Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", headerSafe(n.Subject()))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body(), "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}

func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

// LogNotifier writes notifications to the structured log. It is used when no
// mail relay is configured.
type LogNotifier struct{}

// Notify logs the notification.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	telemetry.Info("notify.logged", map[string]any{
		"submission_id": n.SubmissionID,
		"to":            n.To,
		"subject":       n.Subject(),
		"photos":        n.PhotoCount,
		"folder":        n.FolderURL,
	})
	return nil
}

var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = LogNotifier{}
)
