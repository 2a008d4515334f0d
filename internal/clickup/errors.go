package clickup

import "fmt"

// TransportError indicates the ClickUp API could not be reached at all.
// Not recoverable locally; the caller surfaces it as "couldn't reach the service".
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("clickup: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteServiceError is a non-2xx response from ClickUp.
// Terminal for the tool call that triggered it; no retries are attempted here.
type RemoteServiceError struct {
	StatusCode int
	Body       string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("clickup: status %d: %s", e.StatusCode, e.Body)
}

// MalformedResponseError is a 2xx response whose body could not be decoded.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("clickup: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}
