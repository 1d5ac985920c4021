package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error codes the service returns in error bodies.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeInvalidToken       = "invalid_token"
	ErrorCodeUnknownProvider    = "unknown_provider"
	ErrorCodeServerError        = "server_error"
)

// APIError is a structured error response from the service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// decodeError turns a non-2xx response into an *APIError. Responses without
// a parseable body still yield an APIError with the status code set.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: ErrorCodeServerError}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
		apiErr.Description = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return apiErr
}
