package reflux

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultFailureMessage is used when a failed response carries no message.
const DefaultFailureMessage = "something went wrong"

var (
	// ErrCanceled reports a run torn down before it settled.
	ErrCanceled = errors.New("reflux: run canceled")

	// ErrInvalidRequest reports a declarative HTTP request that failed
	// validation.
	ErrInvalidRequest = errors.New("reflux: invalid http request")
)

// Failure is the normalized shape placed into FAIL actions.
type Failure struct {
	Message string
	Status  int
}

func (f Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (status %d)", f.Message, f.Status)
	}
	return f.Message
}

// HTTPError reports a response with a non-success status, or a successful
// response whose body was flagged as a logical failure.
type HTTPError struct {
	Message string
	Status  int

	// Fields holds the flagged fields of a content-level failure.
	Fields Record
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// TransportError reports a unit of work that returned an error or panicked.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return e.Cause.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// AsFailure normalizes any error into a Failure.
func AsFailure(err error) Failure {
	if err == nil {
		return Failure{}
	}

	var f Failure
	if errors.As(err, &f) {
		return f
	}
	var fp *Failure
	if errors.As(err, &fp) && fp != nil {
		return *fp
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return Failure{Message: he.Message, Status: he.Status}
	}
	var te *TransportError
	if errors.As(err, &te) {
		return AsFailure(te.Cause)
	}
	return Failure{Message: err.Error()}
}

// failureMessage extracts a message from a decoded error body, falling back
// through message, error and the default.
func failureMessage(body any) string {
	switch b := body.(type) {
	case string:
		if b != "" {
			return b
		}
	case map[string]any:
		return failureMessage(Record(b))
	case Record:
		if m, ok := b[FieldMessage].(string); ok && m != "" {
			return m
		}
		if m, ok := b[FieldError].(string); ok && m != "" {
			return m
		}
	}
	return DefaultFailureMessage
}
