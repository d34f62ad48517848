package hica

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrThreadNotFound is returned by ThreadStore.Get when no snapshot exists
// for the requested id.
var ErrThreadNotFound = errors.New("thread not found")

// ErrHTTP is an HTTP-level provider error. Providers return it for non-200
// responses so the retry middleware can detect transient failures (429, 503)
// and honor Retry-After.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses an HTTP Retry-After header value given in seconds.
// Returns 0 for empty or unparseable values (the HTTP-date form is ignored).
func ParseRetryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// ErrLLM is a provider failure: transport errors, malformed responses, or
// model output that fails schema validation.
type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("llm %s: %s", e.Provider, e.Message)
}

// ErrUnknownTool is returned when dispatch names a tool absent from the
// registry catalog.
type ErrUnknownTool struct {
	Name string
}

func (e *ErrUnknownTool) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ErrInvalidSelection is returned when the model selects an intent that is
// neither a control literal nor a registered tool. The selection schema's
// enum should prevent this; the loop still checks.
type ErrInvalidSelection struct {
	Intent string
}

func (e *ErrInvalidSelection) Error() string {
	return fmt.Sprintf("invalid selection intent %q", e.Intent)
}

// ErrParameterValidation is returned when model-synthesized arguments fail
// validation against the tool's parameter schema.
type ErrParameterValidation struct {
	Tool  string
	Cause error
}

func (e *ErrParameterValidation) Error() string {
	return fmt.Sprintf("parameters for tool %q: %v", e.Tool, e.Cause)
}

func (e *ErrParameterValidation) Unwrap() error { return e.Cause }

// ErrNotConnected is returned when a remote tool operation is attempted on a
// connection that has not been opened (or has been closed).
type ErrNotConnected struct {
	Op string
}

func (e *ErrNotConnected) Error() string {
	return fmt.Sprintf("%s: connection not established", e.Op)
}

// ErrToolExecution wraps a failure raised by a local executor or a remote
// tool call. The loop surfaces it without retrying; the thread keeps every
// event appended before the failure.
type ErrToolExecution struct {
	Tool  string
	Cause error
}

func (e *ErrToolExecution) Error() string {
	return fmt.Sprintf("tool %q: %v", e.Tool, e.Cause)
}

func (e *ErrToolExecution) Unwrap() error { return e.Cause }

// ErrStoreIO wraps an I/O or database failure in a thread store backend.
type ErrStoreIO struct {
	Backend string
	Op      string
	ID      string
	Cause   error
}

func (e *ErrStoreIO) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s store %s: %v", e.Backend, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s store %s %q: %v", e.Backend, e.Op, e.ID, e.Cause)
}

func (e *ErrStoreIO) Unwrap() error { return e.Cause }

// ErrSerialization wraps a thread encode/decode failure.
type ErrSerialization struct {
	Cause error
}

func (e *ErrSerialization) Error() string {
	return fmt.Sprintf("thread serialization: %v", e.Cause)
}

func (e *ErrSerialization) Unwrap() error { return e.Cause }
