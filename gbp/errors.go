package gbp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a classified provider error: HTTP status plus the code/status/
// message from the provider's structured error body, so callers can tell
// quota-exceeded from not-found without string matching.
type APIError struct {
	StatusCode int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider api error %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("provider api error %d", e.StatusCode)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsQuotaExceeded() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}

type apiErrorBody struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		apiErr.Code = parsed.Error.Code
		apiErr.Status = parsed.Error.Status
		apiErr.Message = parsed.Error.Message
		return apiErr
	}

	// Non-JSON error body: keep the raw text so nothing is lost.
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
