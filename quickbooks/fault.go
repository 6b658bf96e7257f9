package quickbooks

import (
	"encoding/json"
	"fmt"
)

// Fault is the structured error body QuickBooks returns on API failures.
type Fault struct {
	Type   string       `json:"type"`
	Errors []FaultError `json:"Error"`
}

type FaultError struct {
	Message string `json:"Message"`
	Detail  string `json:"Detail"`
	Code    string `json:"code"`
}

// ProviderError reports a failed upstream call. A non-zero StatusCode means
// the provider answered with a non-success status; Err is set instead when
// the request never completed (timeout, connection failure), so callers can
// tell a definitive rejection from a retryable transport problem.
type ProviderError struct {
	StatusCode int
	OAuthError string // OAuth2 error code, e.g. "invalid_grant"
	Detail     string
	Fault      *Fault
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("provider request failed: %v", e.Err)
	case e.OAuthError != "":
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.OAuthError)
	case e.Fault != nil && len(e.Fault.Errors) > 0:
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Fault.Errors[0].Message)
	default:
		return fmt.Sprintf("provider returned %d", e.StatusCode)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transport reports whether the failure happened before any provider
// response was received.
func (e *ProviderError) Transport() bool {
	return e.Err != nil
}

// parseFault decodes a QuickBooks fault envelope, returning nil when the
// body carries none.
func parseFault(body []byte) *Fault {
	var envelope struct {
		Fault *Fault `json:"Fault"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	return envelope.Fault
}
