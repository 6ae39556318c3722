package upload

import (
	"errors"

	"photoreq-backend/internal/imaging"
	"photoreq-backend/internal/receiver"
)

var (
	ErrUnknownRequirement = errors.New("unknown requirement")
	ErrEmptyImage         = errors.New("image is empty")
	ErrClosed             = errors.New("upload session closed")
	ErrSubmitting         = errors.New("submission in progress")
	ErrAlreadySubmitted   = errors.New("photos already submitted")
	ErrNothingToSubmit    = errors.New("no photos to submit")
	ErrImageTooLarge      = imaging.ErrImageTooLarge
)

const (
	msgNotConfigured    = "System Error: The upload connection is not configured. Please contact the agency."
	msgUploadFailed     = "Upload failed. Please check your internet connection and try again."
	msgNothingToSubmit  = "Please add at least one photo before submitting."
	msgSubmitting       = "Your photos are already being uploaded."
	msgAlreadySubmitted = "These photos have already been submitted."
	msgImageTooLarge    = "This photo is too large. Please retake it at a lower resolution."

	classifierFailedFeedback = "AI check failed, manual review needed."
)

// UserMessage maps a capture or submit error to the text shown to the client.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, receiver.ErrNotConfigured):
		return msgNotConfigured
	case errors.Is(err, ErrNothingToSubmit):
		return msgNothingToSubmit
	case errors.Is(err, ErrSubmitting):
		return msgSubmitting
	case errors.Is(err, ErrAlreadySubmitted):
		return msgAlreadySubmitted
	case errors.Is(err, ErrImageTooLarge):
		return msgImageTooLarge
	default:
		return msgUploadFailed
	}
}
