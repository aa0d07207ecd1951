package eventclient

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound means the record does not exist or was soft-deleted.
var ErrNotFound = errors.New("event not found")

// ErrInvalidPage is returned before any request for a negative page index or
// a non-positive page size.
var ErrInvalidPage = errors.New("invalid page request")

// TransportError covers network failures, timeouts, and unexpected statuses.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError means the response could not be decoded into the expected shape.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: unexpected response: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ServerValidationError is a rejection of the submitted payload. Fields is
// keyed by form field name.
type ServerValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ServerValidationError) Error() string {
	if e.Message == "" {
		return "server rejected the event"
	}
	return "server rejected the event: " + e.Message
}

// errorBody is the JSON error payload of the API.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

// detail returns the first line of the error text, falling back to message.
func (b errorBody) detail() string {
	msg := b.Error
	if msg == "" {
		msg = b.Message
	}
	line, _, _ := strings.Cut(msg, "\n")
	return strings.TrimSpace(line)
}
