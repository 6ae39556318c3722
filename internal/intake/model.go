package intake

import (
	"errors"
	"strings"
	"time"

	"photoreq-backend/internal/receiver"
)

var (
	// ErrInvalidPayload is returned for bodies that are not a submission.
	ErrInvalidPayload = errors.New("invalid submission payload")
	// ErrInvalidFile is returned when a file's data is not base64.
	ErrInvalidFile = errors.New("invalid file data")
)

// StatusReceived is the status of a stored submission.
const StatusReceived = "received"

// Payload is the body posted by the upload client. ClientPhone is optional and
// only recorded in the submission log.
type Payload struct {
	receiver.Payload
	ClientPhone string `json:"clientPhone,omitempty"`
}

// Submission is one row of the submission log.
type Submission struct {
	ID               string    `json:"id" dynamodbav:"id"`
	ReceivedAt       time.Time `json:"receivedAt" dynamodbav:"received_at"`
	ClientName       string    `json:"clientName" dynamodbav:"client_name"`
	PolicyNumber     string    `json:"policyNumber" dynamodbav:"policy_number"`
	InsuranceCompany string    `json:"insuranceCompany" dynamodbav:"insurance_company"`
	Address          string    `json:"address" dynamodbav:"address"`
	ClientPhone      string    `json:"clientPhone" dynamodbav:"client_phone"`
	AgentEmail       string    `json:"agentEmail" dynamodbav:"agent_email"`
	FolderKey        string    `json:"folderKey" dynamodbav:"folder_key"`
	FolderURL        string    `json:"folderUrl" dynamodbav:"folder_url"`
	PhotoCount       int       `json:"photoCount" dynamodbav:"photo_count"`
	Status           string    `json:"status" dynamodbav:"status"`
}

// FolderName is "<client> - <address> - <YYYY-MM-DD>" with placeholders for
// blank fields. The date is taken in UTC.
func FolderName(clientName, address string, at time.Time) string {
	client := strings.TrimSpace(clientName)
	if client == "" {
		client = "Client"
	}
	addr := strings.TrimSpace(address)
	if addr == "" {
		addr = "No Address"
	}
	return client + " - " + addr + " - " + at.UTC().Format("2006-01-02")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
