package transport

import (
	"net/http"
	"net/url"
)

// Request describes one API call. Bodies are held as values or bytes so the
// request can be sent a second time after a renewal.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header

	// JSON is marshalled and sent with Content-Type: application/json.
	JSON any
	// Body is sent verbatim with ContentType (for multipart payloads, the
	// writer's FormDataContentType including the boundary). Ignored when JSON
	// is set.
	Body        []byte
	ContentType string

	// Anonymous requests carry no bearer token and never trigger renewal.
	Anonymous bool
	// NoRenew requests carry the bearer token but propagate expiry unchanged.
	NoRenew bool
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}
