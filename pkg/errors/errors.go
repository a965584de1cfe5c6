// Package errors defines the typed errors shared by the ledger gateways, the
// catalog builder and the publisher. HTTP handlers map the type to a status.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies an AppError.
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeInternal         ErrorType = "INTERNAL"
	ErrorTypeTransport        ErrorType = "TRANSPORT"
	ErrorTypeMalformedRecord  ErrorType = "MALFORMED_RECORD"
	ErrorTypeSubmissionFailed ErrorType = "SUBMISSION_FAILED"
	ErrorTypePublishFailed    ErrorType = "PUBLISH_FAILED"
)

// AppError carries a type, a human readable message and an optional cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(t ErrorType, message string, cause error) error {
	return &AppError{Type: t, Message: message, Err: cause}
}

// NewValidation reports input that failed validation.
func NewValidation(message string) error {
	return newError(ErrorTypeValidation, message, nil)
}

// NewNotFound reports a lookup with no result, such as a pruned transaction.
func NewNotFound(message string) error {
	return newError(ErrorTypeNotFound, message, nil)
}

// NewInternal reports a failure that is not the caller's fault.
func NewInternal(message string, cause error) error {
	return newError(ErrorTypeInternal, message, cause)
}

// NewTransport creates an error for a failed ledger call (network, RPC or
// circuit breaker rejection).
func NewTransport(message string, cause error) error {
	return newError(ErrorTypeTransport, message, cause)
}

// NewMalformedRecord creates an error for ledger log output that does not
// carry a decodable artifact record.
func NewMalformedRecord(message string, cause error) error {
	return newError(ErrorTypeMalformedRecord, message, cause)
}

// NewSubmissionFailed creates an error for a transaction the ledger rejected
// or never confirmed.
func NewSubmissionFailed(message string, cause error) error {
	return newError(ErrorTypeSubmissionFailed, message, cause)
}

// NewPublishFailed creates an error surfaced by the record publisher.
func NewPublishFailed(message string, cause error) error {
	return newError(ErrorTypePublishFailed, message, cause)
}

// TypeOf returns the type of the outermost AppError in err's chain, or "" when
// there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// The predicates below walk the whole chain, so a PublishFailed error that
// wraps a SubmissionFailed answers true to both.

func hasType(err error, t ErrorType) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Type == t {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func IsValidation(err error) bool       { return hasType(err, ErrorTypeValidation) }
func IsNotFound(err error) bool         { return hasType(err, ErrorTypeNotFound) }
func IsTransport(err error) bool        { return hasType(err, ErrorTypeTransport) }
func IsMalformedRecord(err error) bool  { return hasType(err, ErrorTypeMalformedRecord) }
func IsSubmissionFailed(err error) bool { return hasType(err, ErrorTypeSubmissionFailed) }
func IsPublishFailed(err error) bool    { return hasType(err, ErrorTypePublishFailed) }
