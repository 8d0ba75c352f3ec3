package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// UserMessage turns a Solve error into the sentence shown to the person
// asking. Unknown errors fall back to their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		cfgErr   *ConfigurationError
		netErr   *NetworkError
		badReq   *BadRequestError
		authErr  *AuthError
		rlErr    *RateLimitError
		srvErr   *ServerError
		apiErr   *APIError
		blocked  *ContentPolicyError
		emptyErr *EmptyResponseError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "API key not configured. Please set your API key in the configuration."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	case errors.As(err, &netErr):
		return "Network error. Please check your internet connection and try again."
	case errors.As(err, &badReq):
		return "Invalid request. Please check your input and try again."
	case errors.As(err, &authErr):
		if authErr.Forbidden() {
			return "Access denied. Please check your API permissions."
		}
		return "API key is invalid or expired. Please check your configuration."
	case errors.As(err, &rlErr):
		return "Rate limit exceeded. Please wait a moment and try again."
	case errors.As(err, &srvErr):
		return "Server error. Please try again later."
	case errors.As(err, &blocked):
		if blocked.Reason == ReasonRecitation {
			return "Response blocked due to content policy. Please try a different approach."
		}
		return "Response blocked by safety filters. Please rephrase your question."
	case errors.As(err, &emptyErr):
		switch emptyErr.Kind {
		case NoCandidates:
			return "No response generated. Please try rephrasing your question."
		case NoParts:
			return "Empty response from AI. Please try again."
		default:
			return "Empty response from AI. Please try rephrasing your question."
		}
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return "Server error. Please try again later."
		}
		return fmt.Sprintf("API request failed with status %d", apiErr.StatusCode)
	}
	return err.Error()
}
