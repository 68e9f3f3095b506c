package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies service failures so controllers can map them to HTTP
// statuses without inspecting message strings.
type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuth
	KindForbidden
	KindNotFound
	KindPrecondition
	KindUpstream
	KindPersistence
)

// ServiceError carries the failure kind plus provider identity and latency
// for upstream failures, so callers can tell "our bug" from "their outage".
type ServiceError struct {
	Kind      ErrorKind
	Message   string
	Provider  string
	LatencyMS int64
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (provider=%s)", e.Message, e.Provider)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func NewValidationError(msg string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: msg}
}

func NewAuthError(msg string) *ServiceError {
	return &ServiceError{Kind: KindAuth, Message: msg}
}

func NewForbiddenError(msg string) *ServiceError {
	return &ServiceError{Kind: KindForbidden, Message: msg}
}

func NewNotFoundError(msg string) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: msg}
}

func NewPreconditionError(msg string) *ServiceError {
	return &ServiceError{Kind: KindPrecondition, Message: msg}
}

func NewUpstreamError(provider string, latencyMS int64, err error) *ServiceError {
	return &ServiceError{
		Kind:      KindUpstream,
		Message:   "external provider request failed",
		Provider:  provider,
		LatencyMS: latencyMS,
		Err:       err,
	}
}

func NewPersistenceError(msg string, err error) *ServiceError {
	return &ServiceError{Kind: KindPersistence, Message: msg, Err: err}
}

// HTTPStatus maps a service error to its response code. Unknown errors are
// treated as internal.
func HTTPStatus(err error) int {
	var se *ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindPrecondition:
		return http.StatusPreconditionFailed
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindOf returns the kind of a service error, or -1 for plain errors.
func ErrorKindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return -1
}
