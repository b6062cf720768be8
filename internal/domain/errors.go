package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureKind classifies why a load action failed
type FailureKind string

const (
	KindValidation FailureKind = "ValidationError"
	KindNetwork    FailureKind = "NetworkError"
	KindHTTP       FailureKind = "HttpError"
	KindMalformed  FailureKind = "MalformedResponse"
)

// Failure is a terminal error for one load action. None are retried.
type Failure struct {
	Kind   FailureKind
	Status int
	Field  string
	Detail string
	Err    error
}

// Validation creates a failure for bad user input
func Validation(field, detail string) *Failure {
	return &Failure{Kind: KindValidation, Field: field, Detail: detail}
}

// Network creates a failure for a transport error
func Network(err error) *Failure {
	return &Failure{Kind: KindNetwork, Err: err}
}

// HTTPStatus creates a failure for a non-2xx response
func HTTPStatus(status int, body string) *Failure {
	return &Failure{Kind: KindHTTP, Status: status, Detail: body}
}

// Malformed creates a failure for a 2xx response with an unusable body
func Malformed(detail string, err error) *Failure {
	return &Failure{Kind: KindMalformed, Detail: detail, Err: err}
}

func (f *Failure) Error() string {
	switch f.Kind {
	case KindValidation:
		if f.Field != "" {
			return fmt.Sprintf("invalid %s: %s", f.Field, f.Detail)
		}
		return "invalid query: " + f.Detail
	case KindNetwork:
		return fmt.Sprintf("network error: %v", f.Err)
	case KindHTTP:
		if f.Detail != "" {
			return fmt.Sprintf("HTTP %d: %s", f.Status, f.Detail)
		}
		return fmt.Sprintf("HTTP %d", f.Status)
	case KindMalformed:
		if f.Err != nil {
			return fmt.Sprintf("malformed response: %s: %v", f.Detail, f.Err)
		}
		return "malformed response: " + f.Detail
	}
	return string(f.Kind)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Code returns the envelope error code
func (f *Failure) Code() string {
	switch f.Kind {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindNetwork:
		return "NETWORK_ERROR"
	case KindHTTP:
		return "HTTP_ERROR"
	case KindMalformed:
		return "MALFORMED_RESPONSE"
	}
	return "INTERNAL"
}

// Message maps the failure to the single string shown in the error region
func (f *Failure) Message() string {
	switch f.Kind {
	case KindValidation:
		return f.Detail
	case KindNetwork:
		return "Network error while contacting NASA. Check your connection and try again."
	case KindHTTP:
		if f.Status == http.StatusForbidden || f.Status == http.StatusTooManyRequests {
			return "Your NASA API key looks invalid or rate-limited. Try again with a valid key."
		}
		return fmt.Sprintf("NASA request failed (%d). Try another query.", f.Status)
	case KindMalformed:
		return "NASA returned a response that could not be read."
	}
	return "Could not load results."
}

// AsFailure extracts a *Failure from an error chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
