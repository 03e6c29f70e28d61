package terra

import (
	"fmt"
	"strings"
)

// NotFoundError reports a missing platform resource (workspace, entity,
// submission, workflow, method config).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found; verify the identifier is correct", e.Resource, e.ID)
}

// AccessDeniedError reports a 403 from the platform.
type AccessDeniedError struct {
	Resource string
	ID       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s %q; you may not have permission to view it", e.Resource, e.ID)
}

// ValidationError reports a request the platform (or this client)
// rejected as malformed. Detail carries the upstream body when present.
type ValidationError struct {
	Message string
	Detail  string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("invalid request: %s: %s", e.Message, e.Detail)
	}
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// UpstreamError reports an unexpected non-2xx status or a transport
// failure. The status code is carried; the raw body is not surfaced to
// end callers beyond a bounded detail string.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Cause      error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s failed with HTTP %d", e.Operation, e.StatusCode)
}

// Unwrap returns the transport-level cause, if any.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// mapStatus translates an HTTP response status into the error taxonomy.
// A nil return means the status is a success (2xx).
func mapStatus(operation, resource, id string, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 404:
		return &NotFoundError{Resource: resource, ID: id}
	case status == 403:
		return &AccessDeniedError{Resource: resource, ID: id}
	case status == 400:
		return &ValidationError{Message: operation + " rejected", Detail: boundedBody(body)}
	default:
		return &UpstreamError{Operation: operation, StatusCode: status}
	}
}

// boundedBody trims an upstream error body to something quotable.
func boundedBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
