package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrTypeDuplicateJob represents an enqueue of an item that is already queued
	ErrTypeDuplicateJob ErrorType = "duplicate_job"
	// ErrTypeAlreadyDownloaded represents an enqueue of an item already recorded as downloaded
	ErrTypeAlreadyDownloaded ErrorType = "already_downloaded"
	// ErrTypeJobNotFound represents a queue lookup or removal miss
	ErrTypeJobNotFound ErrorType = "job_not_found"
	// ErrTypeTransfer represents a network or HTTP failure mid-download
	ErrTypeTransfer ErrorType = "transfer"
	// ErrTypeStoreWrite represents a failure persisting download records
	ErrTypeStoreWrite ErrorType = "store_write"
	// ErrTypeStoreCorrupt represents an unparseable record store file at load time
	ErrTypeStoreCorrupt ErrorType = "store_corrupt"
	// ErrTypeValidation represents invalid caller input
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeUnknown represents unknown errors
	ErrTypeUnknown ErrorType = "unknown"
)

// Sentinel errors for queue control flow. These are expected outcomes,
// not faults: callers branch on them and they are never logged as errors.
var (
	// ErrQueueEmpty is returned by a dequeue on an empty queue
	ErrQueueEmpty = errors.New("queue is empty")
	// ErrDuplicateJob is returned by an enqueue whose itemId is already queued
	ErrDuplicateJob = errors.New("item is already queued")
	// ErrAlreadyDownloaded is returned by an enqueue whose itemId is already recorded
	ErrAlreadyDownloaded = errors.New("item is already downloaded")
	// ErrJobNotFound is returned when a job id is not present in the queue
	ErrJobNotFound = errors.New("job not found")
)

// AppError represents an application error with context
type AppError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewDuplicateJobError creates an error for an already-queued item
func NewDuplicateJobError(itemID string) *AppError {
	return &AppError{
		Type:       ErrTypeDuplicateJob,
		Message:    fmt.Sprintf("item %s is already queued", itemID),
		StatusCode: http.StatusConflict,
		Cause:      ErrDuplicateJob,
	}
}

// NewAlreadyDownloadedError creates an error for an already-downloaded item
func NewAlreadyDownloadedError(itemID string) *AppError {
	return &AppError{
		Type:       ErrTypeAlreadyDownloaded,
		Message:    fmt.Sprintf("item %s is already downloaded", itemID),
		StatusCode: http.StatusConflict,
		Cause:      ErrAlreadyDownloaded,
	}
}

// NewJobNotFoundError creates an error for a missing job id
func NewJobNotFoundError(jobID string) *AppError {
	return &AppError{
		Type:       ErrTypeJobNotFound,
		Message:    fmt.Sprintf("job %s not found", jobID),
		StatusCode: http.StatusNotFound,
		Cause:      ErrJobNotFound,
	}
}

// NewTransferError creates an error for a failed download transfer
func NewTransferError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeTransfer,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewStoreWriteError creates an error for a failed record store save
func NewStoreWriteError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeStoreWrite,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewStoreCorruptError creates an error for an unparseable record store file
func NewStoreCorruptError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrTypeStoreCorrupt,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewValidationError creates an error for invalid caller input
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// GetErrorType returns the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrTypeUnknown
}

// StatusCode returns the HTTP status code mapped to an error,
// defaulting to 500 for untyped errors
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsDuplicateJob checks whether an error reports an already-queued item
func IsDuplicateJob(err error) bool {
	return errors.Is(err, ErrDuplicateJob)
}

// IsAlreadyDownloaded checks whether an error reports an already-downloaded item
func IsAlreadyDownloaded(err error) bool {
	return errors.Is(err, ErrAlreadyDownloaded)
}

// IsJobNotFound checks whether an error reports a missing job
func IsJobNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}

// IsTransferError checks whether an error is a transfer failure
func IsTransferError(err error) bool {
	return GetErrorType(err) == ErrTypeTransfer
}
