package utils

import (
	"fmt"

	"github.com/dl-alexandre/phonesync/internal/types"
)

// Exit codes
const (
	ExitSuccess = 0
	// Profile errors (10-19)
	ExitProfileNotFound   = 10
	ExitProfileInvalid    = 11
	ExitCredentialMissing = 12
	// Local filesystem errors (20-29)
	ExitLocalDirectory = 20
	ExitTransferFailed = 21
	ExitWatermark      = 22
	// Network errors (30-39)
	ExitConnectionError = 30
	ExitAuthRejected    = 31
	ExitListingError    = 32
	ExitTimeout         = 33
	// Validation errors (40-49)
	ExitInvalidArgument = 40
	ExitInvalidPath     = 41
	// Unknown
	ExitUnknown = 99
)

// Error codes (tool-owned, stable)
const (
	ErrCodeProfileNotFound   = "PROFILE_NOT_FOUND"
	ErrCodeProfileInvalid    = "PROFILE_INVALID"
	ErrCodeCredentialMissing = "CREDENTIAL_MISSING"
	ErrCodeLocalDirectory    = "LOCAL_DIRECTORY"
	ErrCodeConnectionError   = "CONNECTION_ERROR"
	ErrCodeAuthRejected      = "AUTH_REJECTED"
	ErrCodeListingError      = "LISTING_ERROR"
	ErrCodeTransferError     = "TRANSFER_ERROR"
	ErrCodeWatermarkError    = "WATERMARK_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeInvalidPath       = "INVALID_PATH"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeUnknown           = "UNKNOWN"
)

// CLIErrorBuilder helps construct CLIError instances
type CLIErrorBuilder struct {
	err types.CLIError
}

// NewCLIError creates a new error builder
func NewCLIError(code, message string) *CLIErrorBuilder {
	return &CLIErrorBuilder{
		err: types.CLIError{
			Code:    code,
			Message: message,
		},
	}
}

func (b *CLIErrorBuilder) WithRetryable(retryable bool) *CLIErrorBuilder {
	b.err.Retryable = retryable
	return b
}

func (b *CLIErrorBuilder) WithContext(key string, value interface{}) *CLIErrorBuilder {
	if b.err.Context == nil {
		b.err.Context = make(map[string]interface{})
	}
	b.err.Context[key] = value
	return b
}

func (b *CLIErrorBuilder) Build() types.CLIError {
	return b.err
}

// GetExitCode returns the exit code for an error code
func GetExitCode(errorCode string) int {
	mapping := map[string]int{
		ErrCodeProfileNotFound:   ExitProfileNotFound,
		ErrCodeProfileInvalid:    ExitProfileInvalid,
		ErrCodeCredentialMissing: ExitCredentialMissing,
		ErrCodeLocalDirectory:    ExitLocalDirectory,
		ErrCodeConnectionError:   ExitConnectionError,
		ErrCodeAuthRejected:      ExitAuthRejected,
		ErrCodeListingError:      ExitListingError,
		ErrCodeTransferError:     ExitTransferFailed,
		ErrCodeWatermarkError:    ExitWatermark,
		ErrCodeTimeout:           ExitTimeout,
		ErrCodeInvalidArgument:   ExitInvalidArgument,
		ErrCodeInvalidPath:       ExitInvalidPath,
	}
	if code, ok := mapping[errorCode]; ok {
		return code
	}
	return ExitUnknown
}

// AppError is a custom error type that carries CLI error info
type AppError struct {
	CLIError types.CLIError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.CLIError.Code, e.CLIError.Message)
}

// NewAppError creates an AppError from a CLIError
func NewAppError(cliErr types.CLIError) *AppError {
	return &AppError{CLIError: cliErr}
}
