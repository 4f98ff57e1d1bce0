package apify

import "fmt"

// statusMessages maps HTTP status codes from the Apify API to the messages
// surfaced to callers.
var statusMessages = map[int]string{
	400: "invalid request parameters",
	401: "invalid API token",
	403: "access forbidden",
	404: "resource not found",
	429: "rate limit exceeded",
	500: "Apify server error",
	503: "service temporarily unavailable",
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	msg, ok := statusMessages[e.StatusCode]
	if !ok {
		msg = "unexpected error"
	}
	return fmt.Sprintf("apify: %s (HTTP %d)", msg, e.StatusCode)
}

// HTTPStatus lets the resilience package classify this error.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// TransportError means the request was sent but no response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("apify: no response received: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RequestError means the request could not even be constructed or encoded.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("apify: request setup failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ProtocolError means a 2xx response violated the expected shape (missing
// run id, missing dataset id, non-array dataset body). Never retried.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "apify: " + e.Reason
}

// ValidationError means the caller supplied an empty or missing required
// argument. Surfaced before any network call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "apify: " + e.Msg
}

// JobError means the actor run itself reached a terminal failure state.
// Never retried.
type JobError struct {
	Status RunStatus
}

func (e *JobError) Error() string {
	return fmt.Sprintf("apify: actor run failed with status %s", e.Status)
}

// TimeoutError means polling exhausted its iteration budget without the run
// reaching a terminal state.
type TimeoutError struct {
	Polls int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("apify: actor run still not finished after %d polls", e.Polls)
}

// EmptyResultError means the run succeeded but its dataset contained no
// usable hits. Distinct from a failed run.
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "apify: no valid results found in the dataset"
}
