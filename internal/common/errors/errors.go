// Package errors provides standardized error handling for the conference
// validation engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Configuration errors: the template is internally inconsistent. Raised at
// save/import time and must block persistence.
const (
	ErrCodeDuplicateInputKey       ErrorCode = "DUPLICATE_INPUT_KEY"
	ErrCodeMalformedInputKey       ErrorCode = "MALFORMED_INPUT_KEY"
	ErrCodeDanglingBinding         ErrorCode = "DANGLING_BINDING"
	ErrCodeIncompatibleScope       ErrorCode = "INCOMPATIBLE_SCOPE"
	ErrCodeMissingBinding          ErrorCode = "MISSING_BINDING"
	ErrCodeInvalidTolerance        ErrorCode = "INVALID_TOLERANCE"
	ErrCodeEmptyQuery              ErrorCode = "EMPTY_QUERY"
	ErrCodeForbiddenQueryVerb      ErrorCode = "FORBIDDEN_QUERY_VERB"
	ErrCodeTemplateValidationFail  ErrorCode = "TEMPLATE_VALIDATION_FAILED"
	ErrCodeMissingExpectedValue    ErrorCode = "MISSING_EXPECTED_VALUE"
	ErrCodeNonNumericExpectedValue ErrorCode = "NON_NUMERIC_EXPECTED_VALUE"
)

// Evaluation-time errors: local to one conference item, never aborting the
// surrounding wizard.
const (
	ErrCodeSubstitutionFailed   ErrorCode = "SUBSTITUTION_FAILED"
	ErrCodeQueryExecutionFailed ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout         ErrorCode = "QUERY_TIMEOUT"
	ErrCodeEvaluationFailed     ErrorCode = "EVALUATION_FAILED"
)

// Lookup and state errors.
const (
	ErrCodeTemplateNotFound   ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeConferenceNotFound ErrorCode = "CONFERENCE_NOT_FOUND"
	ErrCodeItemNotFound       ErrorCode = "ITEM_NOT_FOUND"
	ErrCodeStoreNotFound      ErrorCode = "STORE_NOT_FOUND"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeLinkExpired        ErrorCode = "LINK_EXPIRED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches two StandardErrors by code so errors.Is works across wrapping.
func (e *StandardError) Is(target error) bool {
	var std *StandardError
	if errors.As(target, &std) {
		return e.Code == std.Code
	}
	return false
}

// CodeOf extracts the error code, falling back to INTERNAL_ERROR for
// errors produced outside this package.
func CodeOf(err error) ErrorCode {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code
	}
	return ErrCodeInternal
}

// IsConfiguration reports whether the error belongs to the configuration
// family, i.e. must block template save/import.
func IsConfiguration(err error) bool {
	switch CodeOf(err) {
	case ErrCodeDuplicateInputKey, ErrCodeMalformedInputKey, ErrCodeDanglingBinding,
		ErrCodeIncompatibleScope, ErrCodeMissingBinding, ErrCodeInvalidTolerance,
		ErrCodeEmptyQuery, ErrCodeForbiddenQueryVerb, ErrCodeTemplateValidationFail,
		ErrCodeMissingExpectedValue, ErrCodeNonNumericExpectedValue:
		return true
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewConfigurationError creates a non-retryable template consistency error.
func NewConfigurationError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubstitutionError reports placeholders that could not be resolved.
// The unresolved names are carried in Metadata for the item's error detail.
func NewSubstitutionError(placeholders []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubstitutionFailed,
		Message:   "Query has unresolved placeholders",
		Details:   strings.Join(placeholders, ", "),
		Retryable: false,
		Metadata:  map[string]interface{}{"placeholders": placeholders},
		Timestamp: time.Now().UTC(),
	}
}

// NewExecutionError wraps a failure reported by the external query
// executor. Retryable: the client may re-trigger evaluation.
func NewExecutionError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query executor reported failure",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable timeout error.
func NewQueryTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Query execution timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvaluationError reports a result shape a numeric rule cannot consume:
// zero rows, multiple rows, or a non-numeric value. Distinct from a
// business divergence so operators can tell "broken query" from "client
// disagrees with the number".
func NewEvaluationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvaluationFailed,
		Message:   "Query result not evaluable by rule",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingExpectedValueError reports a rule that requires an expected
// value evaluated without one bound. This is a configuration error, not a
// rule failure.
func NewMissingExpectedValueError(binding string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingExpectedValue,
		Message:   "Rule requires an expected value but none is bound",
		Details:   fmt.Sprintf("binding: %s", binding),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable lookup error.
func NewTemplateNotFoundError(templateID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("templateId: %s", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConferenceNotFoundError creates a non-retryable lookup error.
func NewConferenceNotFoundError(conferenceID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConferenceNotFound,
		Message:   "Conference not found",
		Details:   fmt.Sprintf("conferenceId: %s", conferenceID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewItemNotFoundError creates a non-retryable lookup error.
func NewItemNotFoundError(itemID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeItemNotFound,
		Message:   "Conference item not found",
		Details:   fmt.Sprintf("itemId: %s", itemID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreNotFoundError creates a non-retryable lookup error.
func NewStoreNotFoundError(storeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreNotFound,
		Message:   "Store not configured for conference",
		Details:   fmt.Sprintf("storeId: %s", storeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports a state-machine transition the item's
// current status does not permit.
func NewInvalidTransitionError(from, attempted string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Item status does not permit this transition",
		Details:   fmt.Sprintf("status: %s, attempted: %s", from, attempted),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLinkExpiredError reports an expired client link token.
func NewLinkExpiredError(token string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLinkExpired,
		Message:   "Client link is expired or unknown",
		Details:   fmt.Sprintf("token: %s", token),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
