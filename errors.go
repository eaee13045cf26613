package nludb

import "github.com/nludb/nludb-go/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrUnauthorized      = domain.ErrUnauthorized
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrRateLimited       = domain.ErrRateLimited
	ErrServer            = domain.ErrServer
	ErrAPI               = domain.ErrAPI
	ErrTransport         = domain.ErrTransport
	ErrMalformedResponse = domain.ErrMalformedResponse
	ErrTaskFailed        = domain.ErrTaskFailed
	ErrMissingAPIKey     = domain.ErrMissingAPIKey
	ErrInvalidUpload     = domain.ErrInvalidUpload
)

// Typed errors; use errors.As() to inspect.
type (
	// APIError is an error reported by the server, with its HTTP status.
	APIError = domain.APIError
	// TransportError is a request that never produced an HTTP response.
	TransportError = domain.TransportError
	// TaskError is a task that finished in the failed state.
	TaskError = domain.TaskError
)
