package estat

import "fmt"

// APIError is a classified e-Stat API failure. It carries the transport status
// when the HTTP exchange failed, or the embedded RESULT status when the API
// answered 200 with an error body.
type APIError struct {
	Endpoint   string
	StatusCode int // HTTP status; 0 when the failure came from the RESULT block
	ResultCode int // e-Stat RESULT.STATUS; 0 when the failure was HTTP-level
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("estat %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("estat %s: result code %d: %s", e.Endpoint, e.ResultCode, e.Message)
}

// Authish reports whether the failure is an authentication or authorization
// condition: HTTP 401/403, or e-Stat result codes 100-102 (missing, invalid,
// or expired application id). Callers branch on this instead of inspecting
// message text.
func (e *APIError) Authish() bool {
	switch e.StatusCode {
	case 401, 403:
		return true
	}
	return e.ResultCode >= 100 && e.ResultCode <= 102
}
