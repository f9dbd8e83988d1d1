package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNotFound marks a referenced entity that does not exist
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeInvalidInput marks rejected caller input
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	// ErrorTypeNetwork represents navigation and transport failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParsing represents price text that could not be read
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents a competitor that blocked us
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeExtraction represents any other failure inside one extraction attempt
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeOrchestration represents a failure to start a fleet run
	ErrorTypeOrchestration ErrorType = "orchestration"
	// ErrorTypeStorage represents persistence failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Error is the typed error carried across package boundaries
type Error struct {
	Type    ErrorType
	Subject string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Type)
	if e.Subject != "" {
		prefix += " " + e.Subject + ":"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s - %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(errType ErrorType, subject, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Subject: subject,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNotFound creates a not-found error
func NewNotFound(subject, message string) *Error {
	return New(ErrorTypeNotFound, subject, message, nil)
}

// NewInvalidInput creates an input validation error
func NewInvalidInput(subject, message string) *Error {
	return New(ErrorTypeInvalidInput, subject, message, nil)
}

// NewNetwork creates a new network error
func NewNetwork(subject, message string, err error) *Error {
	return New(ErrorTypeNetwork, subject, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(subject, message string) *Error {
	return New(ErrorTypeParsing, subject, message, nil)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(subject string, duration time.Duration) *Error {
	return New(ErrorTypeRateLimit, subject, fmt.Sprintf("cooling down after block for %v", duration), nil)
}

// NewExtraction creates an extraction error
func NewExtraction(subject, message string, err error) *Error {
	return New(ErrorTypeExtraction, subject, message, err)
}

// NewOrchestration creates an orchestration error
func NewOrchestration(message string, err error) *Error {
	return New(ErrorTypeOrchestration, "", message, err)
}

// NewStorage creates a storage error
func NewStorage(message string, err error) *Error {
	return New(ErrorTypeStorage, "", message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *Error {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the type of the first *Error in the chain, or "" if none
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return TypeOf(err) == ErrorTypeNotFound }

// IsInvalidInput reports whether err is an input validation error
func IsInvalidInput(err error) bool { return TypeOf(err) == ErrorTypeInvalidInput }

// IsOrchestration reports whether err is an orchestration error
func IsOrchestration(err error) bool { return TypeOf(err) == ErrorTypeOrchestration }

// IsRateLimit reports whether err is a rate limit error
func IsRateLimit(err error) bool { return TypeOf(err) == ErrorTypeRateLimit }

// Message returns the human-readable message of err without type decoration.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		if e.Err != nil && e.Message == "" {
			return e.Err.Error()
		}
		return e.Message
	}
	return err.Error()
}
