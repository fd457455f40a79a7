// Package errors provides the portal's error taxonomy, its HTTP mapping and
// the BPMN conversion used by the lifecycle workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Request-path codes
const (
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState         ErrorCode = "INVALID_STATE"
	ErrCodeQuorumNotMet         ErrorCode = "QUORUM_NOT_MET"
	ErrCodeTeamDiversityNotMet  ErrorCode = "TEAM_DIVERSITY_NOT_MET"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeDuplicateApplication ErrorCode = "DUPLICATE_APPLICATION"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseWriteFailed      ErrorCode = "DATABASE_WRITE_FAILED"
)

// Collaborator codes
const (
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeIndexFailed            ErrorCode = "INDEX_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeTemplateNotFound       ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewNotFoundError(resource, id string) *StandardError {
	e := newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), fmt.Sprintf("%sId: %s", strings.ToLower(resource), id), false)
	e.Metadata = map[string]interface{}{"resource": resource, "id": id}
	return e
}

// NewInvalidStateError reports an accept attempted outside under_review.
func NewInvalidStateError(current, required string) *StandardError {
	e := newError(ErrCodeInvalidState,
		fmt.Sprintf("Application status is '%s'; it must be '%s' for this action", current, required),
		"", false)
	e.Metadata = map[string]interface{}{"status": current, "requiredStatus": required}
	return e
}

func NewQuorumNotMetError(approvals, required int) *StandardError {
	e := newError(ErrCodeQuorumNotMet,
		fmt.Sprintf("Application has %d approval(s); at least %d are required", approvals, required),
		"", false)
	e.Metadata = map[string]interface{}{"approvalCount": approvals, "required": required}
	return e
}

func NewTeamDiversityNotMetError(teams, required int) *StandardError {
	e := newError(ErrCodeTeamDiversityNotMet,
		fmt.Sprintf("Approvals span %d distinct team(s); at least %d are required", teams, required),
		"", false)
	e.Metadata = map[string]interface{}{"distinctTeams": teams, "required": required}
	return e
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Not allowed to access this resource", details, false)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Authentication required", details, false)
}

func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Request validation failed", details, false)
}

func NewDuplicateApplicationError(userID string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "User already has an application", fmt.Sprintf("userId: %s", userID), false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewDatabaseWriteFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabaseWriteFailed, "Database write failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error", err.Error(), true)
}

func NewIndexFailedError(applicationID string, err error) *StandardError {
	return newError(ErrCodeIndexFailed, "Elasticsearch index error",
		fmt.Sprintf("applicationId: %s, error: %s", applicationID, err.Error()), true)
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewTemplateNotFoundError(event string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "No notification template for event", fmt.Sprintf("event: %s", event), false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Inspection and HTTP mapping
// ==========================

// AsStandard unwraps err to a *StandardError if one is in the chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// HTTPStatus maps an error to the response status for the API layer.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidState,
		ErrCodeQuorumNotMet,
		ErrCodeTeamDiversityNotMet,
		ErrCodeValidationFailed,
		ErrCodeDuplicateApplication:
		return http.StatusBadRequest
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeIndexFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3
	case ErrCodeTimeout:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN codes are the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code for logs.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeQuorumNotMet || code == ErrCodeTeamDiversityNotMet || code == ErrCodeInvalidState:
		return "REVIEW"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "TEMPLATE"):
		return "NOTIFICATION"
	case code == ErrCodeForbidden || code == ErrCodeUnauthorized:
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "DUPLICATE"):
		return "VALIDATION"
	case code == ErrCodeNotFound:
		return "NOT_FOUND"
	default:
		return "SYSTEM"
	}
}
