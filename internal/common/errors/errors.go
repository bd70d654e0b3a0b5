// internal/common/errors/errors.go

// Package errors provides standardized error handling for the escalation engine.
package errors

import (
	goerrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRoutingRuleNotFound  ErrorCode = "ROUTING_RULE_NOT_FOUND"
	ErrCodeRuleValidationFailed ErrorCode = "RULE_VALIDATION_FAILED"

	ErrCodeInvalidSLATimestamp ErrorCode = "INVALID_SLA_TIMESTAMP"

	ErrCodeRepositoryUnavailable ErrorCode = "REPOSITORY_UNAVAILABLE"
	ErrCodeQueryExecutionFailed  ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeDispatchFailed     ErrorCode = "DISPATCH_FAILED"
	ErrCodeRecipientUnknown   ErrorCode = "RECIPIENT_UNKNOWN"
	ErrCodeAuditIndexFailed   ErrorCode = "AUDIT_INDEX_FAILED"
	ErrCodeNotificationClosed ErrorCode = "NOTIFICATION_CLOSED"
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

// NewRoutingRuleNotFoundError creates a non-retryable missing-rule error.
func NewRoutingRuleNotFoundError(ruleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoutingRuleNotFound,
		Message:   "Routing rule not found",
		Details:   fmt.Sprintf("ruleId: %s", ruleID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRuleValidationFailedError creates a non-retryable rule validation error.
func NewRuleValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRuleValidationFailed,
		Message:   "Routing rule validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSLATimestampError creates a non-retryable data-shape error for a
// notification whose slaDueAt cannot be parsed.
func NewInvalidSLATimestampError(notificationID, raw string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSLATimestamp,
		Message:   "Notification has an unparseable SLA deadline",
		Details:   fmt.Sprintf("notificationId: %s, slaDueAt: %q", notificationID, raw),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRepositoryUnavailableError creates a retryable repository error.
func NewRepositoryUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRepositoryUnavailable,
		Message:   "Notification repository unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Repository query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates a retryable transport error.
func NewDispatchFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Channel dispatch failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditIndexFailedError creates a retryable audit indexing error.
func NewAuditIndexFailedError(index, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditIndexFailed,
		Message:   "Audit event indexing failed",
		Details:   fmt.Sprintf("index: %s, error: %s", index, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientUnknownError creates a non-retryable missing-recipient error.
func NewRecipientUnknownError(channel, notificationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientUnknown,
		Message:   "No resolvable recipient for channel",
		Details:   fmt.Sprintf("channel: %s, notificationId: %s", channel, notificationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// AsStandard returns the StandardError in err's chain, if any.
func AsStandard(err error) (*StandardError, bool) {
	var std *StandardError
	if goerrors.As(err, &std) {
		return std, true
	}
	return nil, false
}

// HasCode reports whether err is, or wraps, a StandardError with the given
// code.
func HasCode(err error, code ErrorCode) bool {
	std, ok := AsStandard(err)
	return ok && std.Code == code
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRepositoryUnavailable,
		ErrCodeQueryExecutionFailed,
		ErrCodeDispatchFailed:
		return 3

	case ErrCodeAuditIndexFailed:
		return 1

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
