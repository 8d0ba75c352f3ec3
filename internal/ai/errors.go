package ai

import (
	"fmt"
	"net/http"
	"time"
)

// APIError represents a structured non-2xx response from a provider.
type APIError struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code,omitempty"`
	Status     string         `json:"status,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		if e.Status != "" {
			if e.RequestID != "" {
				return fmt.Sprintf("api error: status=%d code=%s request_id=%s message=%s", e.StatusCode, e.Status, e.RequestID, e.Message)
			}
			return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Status, e.Message)
		}
		if e.RequestID != "" {
			return fmt.Sprintf("api error: status=%d request_id=%s message=%s", e.StatusCode, e.RequestID, e.Message)
		}
		return fmt.Sprintf("api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("api error: status=%d request_id=%s", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// ConfigurationError means the client cannot be used as configured.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// NetworkError wraps a transport failure before any response was received.
type NetworkError struct {
	Host string
	Err  error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "network error"
	}
	if e.Host != "" {
		return fmt.Sprintf("network error reaching %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BadRequestError indicates a 400 response.
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// AuthError indicates authentication/authorization failures (401/403).
type AuthError struct{ *APIError }

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.APIError.Error())
}

// Forbidden distinguishes a permission problem from a bad key.
func (e *AuthError) Forbidden() bool { return e.StatusCode == http.StatusForbidden }

// RateLimitError indicates 429 responses and may include a Retry-After.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}

// ServerError indicates 5xx errors from the provider.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("provider error: %s", e.APIError.Error()) }

// Finish and block reasons reported by the provider.
const (
	ReasonSafety     = "SAFETY"
	ReasonRecitation = "RECITATION"
)

// ContentPolicyError means the provider withheld the answer.
type ContentPolicyError struct {
	Reason string
}

func (e *ContentPolicyError) Error() string {
	return fmt.Sprintf("response blocked: %s", e.Reason)
}

// EmptyKind says which part of a successful response was missing.
type EmptyKind int

const (
	// NoCandidates means the candidate list was absent or empty.
	NoCandidates EmptyKind = iota
	// NoParts means the first candidate had no content parts.
	NoParts
	// BlankText means the first part's text was blank.
	BlankText
)

func (k EmptyKind) String() string {
	switch k {
	case NoCandidates:
		return "no candidates"
	case NoParts:
		return "no content parts"
	case BlankText:
		return "blank text"
	}
	return "unknown"
}

// EmptyResponseError means the provider answered 2xx without usable text.
type EmptyResponseError struct {
	Kind EmptyKind
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty response: %s", e.Kind)
}
