package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error codes the server uses in its error envelope.
const (
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeValidation         = "VALIDATION_ERROR"
)

var (
	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden matches any 403 response.
	ErrForbidden = errors.New("forbidden")
	// ErrTokenExpired matches a 401 with code AUTH_TOKEN_EXPIRED.
	ErrTokenExpired = errors.New("access token expired")
	// ErrInvalidCredentials matches code AUTH_INVALID_CREDENTIALS.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked matches code AUTH_ACCOUNT_LOCKED.
	ErrAccountLocked = errors.New("account locked")
	// ErrValidation matches code VALIDATION_ERROR.
	ErrValidation = errors.New("validation failed")
	// ErrTimeout wraps client-side timeouts. Never treated as token expiry.
	ErrTimeout = errors.New("request timed out")
	// ErrNetwork wraps connectivity failures.
	ErrNetwork = errors.New("network failure")
)

// APIError is the normalized form of a failed API call.
type APIError struct {
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
	RequestID  string          `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Is lets callers match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized && e.Code == CodeTokenExpired
	case ErrInvalidCredentials:
		return e.Code == CodeInvalidCredentials
	case ErrAccountLocked:
		return e.Code == CodeAccountLocked
	case ErrValidation:
		return e.Code == CodeValidation
	}
	return false
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

// NewAPIError normalizes an error response body. Accepted shapes are
// {"error":{code,message,details}}, {"error":"message"} and a flat
// {code,message,details}. Anything else yields code HTTP_<status>.
func NewAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var envelope struct {
		Error json.RawMessage `json:"error"`
		errorBody
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		var nested errorBody
		var text string
		switch {
		case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &nested) == nil:
			e.Code, e.Message, e.Details = nested.Code, nested.Message, nested.Details
		case len(envelope.Error) > 0 && json.Unmarshal(envelope.Error, &text) == nil:
			e.Message = text
		}
		if e.Code == "" {
			e.Code = envelope.Code
		}
		if e.Message == "" {
			e.Message = envelope.Message
		}
		if len(e.Details) == 0 {
			e.Details = envelope.Details
		}
	}

	if e.Code == "" {
		e.Code = "HTTP_" + strconv.Itoa(status)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if string(e.Details) == "null" {
		e.Details = nil
	}
	return e
}

// AsAPIError extracts the *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FieldErrors maps validation details to per-field messages. Details may be a
// list of {field|path, message} objects, or an object mapping field names to a
// message or a list of messages (the first one wins).
func FieldErrors(err error) map[string]string {
	apiErr, ok := AsAPIError(err)
	if !ok || len(apiErr.Details) == 0 {
		return nil
	}

	out := make(map[string]string)

	var list []struct {
		Field   string `json:"field"`
		Path    string `json:"path"`
		Message string `json:"message"`
	}
	if json.Unmarshal(apiErr.Details, &list) == nil {
		for _, item := range list {
			field := item.Field
			if field == "" {
				field = item.Path
			}
			if field == "" {
				continue
			}
			if _, seen := out[field]; !seen {
				out[field] = item.Message
			}
		}
		return out
	}

	var byField map[string]json.RawMessage
	if json.Unmarshal(apiErr.Details, &byField) == nil {
		for field, raw := range byField {
			var msg string
			if json.Unmarshal(raw, &msg) == nil {
				out[field] = msg
				continue
			}
			var msgs []string
			if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
				out[field] = strings.TrimSpace(msgs[0])
			}
		}
	}
	return out
}

// IsTransient reports whether err is a connectivity or server-side failure
// that says nothing about the validity of the session.
func IsTransient(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork) {
		return true
	}
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch {
	case apiErr.StatusCode >= 500:
		return true
	case apiErr.StatusCode == http.StatusRequestTimeout, apiErr.StatusCode == http.StatusTooManyRequests:
		return true
	}
	return false
}
