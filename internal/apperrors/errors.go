package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates that the operation lost a race against a concurrent mutation.
var ErrConflict = errors.New("conflicting concurrent update")

// ErrInternal indicates an unexpected failure in a store or downstream dependency.
var ErrInternal = errors.New("internal error")

// ErrAccountNotFound indicates that the referenced account does not exist.
var ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)

// ErrPlanNotFound indicates that the referenced plan does not exist.
var ErrPlanNotFound = fmt.Errorf("plan %w", ErrNotFound)

// ErrInvalidPostingParams indicates that submitted postings are malformed or
// do not match the postings recorded for the plan.
var ErrInvalidPostingParams = errors.New("invalid posting params")

// ErrNotReady indicates that this replica cannot yet satisfy the requested
// clock and the caller should retry against a fresher replica.
var ErrNotReady = errors.New("replica not ready for requested clock")

// AppError wraps an underlying error with a transport status code and a
// caller-facing message.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError wrapping err.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates a 404 AppError wrapping ErrNotFound.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}

// NewInternalError creates a 500 AppError wrapping ErrInternal alongside err.
func NewInternalError(message string, err error) *AppError {
	if err == nil {
		err = ErrInternal
	}
	return &AppError{Code: 500, Message: message, Err: fmt.Errorf("%w: %w", ErrInternal, err)}
}

// PostingIssue describes one problem with one submitted posting or batch.
// Index is the position within the submitted batch, or -1 when the issue
// concerns the batch as a whole.
type PostingIssue struct {
	BatchID int64  `json:"batchID"`
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Reason  string `json:"reason"`
}

func (i PostingIssue) String() string {
	if i.Index < 0 {
		return fmt.Sprintf("batch %d: %s", i.BatchID, i.Reason)
	}
	return fmt.Sprintf("batch %d posting %d: %s", i.BatchID, i.Index, i.Reason)
}

// InvalidPostingParamsError carries the full list of posting issues found in
// one validation pass. It unwraps to ErrInvalidPostingParams so callers can
// match it with errors.Is.
type InvalidPostingParamsError struct {
	Issues []PostingIssue
}

func (e *InvalidPostingParamsError) Error() string {
	if len(e.Issues) == 0 {
		return ErrInvalidPostingParams.Error()
	}
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidPostingParams.Error(), strings.Join(parts, "; "))
}

func (e *InvalidPostingParamsError) Unwrap() error {
	return ErrInvalidPostingParams
}

// NewInvalidPostingParams builds an InvalidPostingParamsError from issues.
func NewInvalidPostingParams(issues ...PostingIssue) *InvalidPostingParamsError {
	return &InvalidPostingParamsError{Issues: issues}
}
