package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized signals a rejected or missing API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidRequest signals a request the server refused to process.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrServer signals a server-side failure.
	ErrServer = errors.New("server error")
	// ErrAPI signals any other application error reported by the server.
	ErrAPI = errors.New("api error")

	// ErrTransport signals that the request never produced an HTTP response.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse signals a response body that does not match the expected shape.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTaskFailed signals an asynchronous task that finished unsuccessfully.
	ErrTaskFailed = errors.New("task failed")
	// ErrMissingAPIKey signals a client built without credentials.
	ErrMissingAPIKey = errors.New("api key required")
	// ErrInvalidUpload signals an upload without a name or content.
	ErrInvalidUpload = errors.New("invalid upload")
)

// APIError is an application error reported by the server.
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: http %d: %s: %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap maps the status code to a sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrServer
	default:
		return ErrAPI
	}
}

// TransportError wraps a network-level failure.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Endpoint, ErrTransport, e.Err)
}

// Unwrap exposes both ErrTransport and the cause.
func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// TaskError reports a task that ended in the failed state.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrTaskFailed, e.TaskID)
	}
	return fmt.Sprintf("%s: %s: %s", ErrTaskFailed, e.TaskID, e.Message)
}

func (e *TaskError) Unwrap() error { return ErrTaskFailed }
