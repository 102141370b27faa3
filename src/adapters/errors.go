package adapters

import "fmt"

const maxBodyPreview = 256

// ProviderRequestError is a non-success response from a vendor API.
// It is surfaced to the call session as a turn failure; the session
// decides whether to retry, apologize, or end the call.
type ProviderRequestError struct {
	Provider string
	Status   int
	Body     string
}

// NewProviderRequestError builds a ProviderRequestError with the response
// body truncated to a diagnosable preview
func NewProviderRequestError(provider string, status int, body []byte) *ProviderRequestError {
	preview := string(body)
	if len(preview) > maxBodyPreview {
		preview = preview[:maxBodyPreview]
	}
	return &ProviderRequestError{Provider: provider, Status: status, Body: preview}
}

func (e *ProviderRequestError) Error() string {
	return fmt.Sprintf("%s request failed (status %d): %s", e.Provider, e.Status, e.Body)
}
