package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dl-alexandre/phonesync/internal/profile"
	syncengine "github.com/dl-alexandre/phonesync/internal/sync"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorFor(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name      string
		err       error
		wantCode  string
		retryable bool
	}{
		{
			name:      "connection refused",
			err:       &syncengine.ConnectionError{Addr: "192.168.0.11:2121", Err: cause},
			wantCode:  utils.ErrCodeConnectionError,
			retryable: true,
		},
		{
			name:     "authentication rejected",
			err:      &syncengine.ConnectionError{Addr: "192.168.0.11:2121", AuthRejected: true, Err: cause},
			wantCode: utils.ErrCodeAuthRejected,
		},
		{
			name:     "local directory",
			err:      &syncengine.LocalDirectoryError{Dir: "/photos", Err: cause},
			wantCode: utils.ErrCodeLocalDirectory,
		},
		{
			name:      "wrapped listing error",
			err:       fmt.Errorf("walk: %w", &syncengine.ListingError{Path: "/DCIM", Err: cause}),
			wantCode:  utils.ErrCodeListingError,
			retryable: true,
		},
		{
			name:      "transfer error",
			err:       &syncengine.TransferError{RemotePath: "/DCIM/a.jpg", LocalPath: "/photos/a.jpg", Err: cause},
			wantCode:  utils.ErrCodeTransferError,
			retryable: true,
		},
		{
			name:     "watermark error",
			err:      &syncengine.WatermarkError{Dir: "/photos", Err: cause},
			wantCode: utils.ErrCodeWatermarkError,
		},
		{
			name:     "profile not found",
			err:      fmt.Errorf("%w: 'pixel'", profile.ErrProfileNotFound),
			wantCode: utils.ErrCodeProfileNotFound,
		},
		{
			name:     "credential missing",
			err:      fmt.Errorf("%w: no entry", profile.ErrCredentialMissing),
			wantCode: utils.ErrCodeCredentialMissing,
		},
		{
			name:     "invalid profile",
			err:      fmt.Errorf("%w: port 0", syncengine.ErrInvalidProfile),
			wantCode: utils.ErrCodeProfileInvalid,
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("walk: %w", context.Canceled),
			wantCode: utils.ErrCodeCancelled,
		},
		{
			name:      "deadline",
			err:       context.DeadlineExceeded,
			wantCode:  utils.ErrCodeTimeout,
			retryable: true,
		},
		{
			name:     "unknown uses fallback",
			err:      cause,
			wantCode: utils.ErrCodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cliErrorFor(tt.err, utils.ErrCodeInternalError)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.err.Error(), got.Message)
		})
	}
}

func TestCLIErrorForContext(t *testing.T) {
	got := cliErrorFor(&syncengine.TransferError{RemotePath: "/DCIM/a.jpg", LocalPath: "/photos/a.jpg", Err: errors.New("reset")}, utils.ErrCodeUnknown)
	assert.Equal(t, "/DCIM/a.jpg", got.Context["remotePath"])
	assert.Equal(t, "/photos/a.jpg", got.Context["localPath"])
}

func TestWriteFailureStrict(t *testing.T) {
	t.Cleanup(func() { globalFlags = types.GlobalFlags{} })
	cliErr := utils.NewCLIError(utils.ErrCodeAuthRejected, "authentication rejected").Build()

	globalFlags = types.GlobalFlags{Strict: false}
	out, stdout, _ := newTestWriter(t, types.OutputFormatJSON, false)
	assert.NoError(t, writeFailure(out, "transfer.extract", cliErr), "non-strict failure should not fail the command")
	assert.NotZero(t, stdout.Len(), "error envelope not written")

	globalFlags = types.GlobalFlags{Strict: true}
	out, _, _ = newTestWriter(t, types.OutputFormatJSON, false)
	err := writeFailure(out, "transfer.extract", cliErr)
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ExitAuthRejected, utils.GetExitCode(appErr.CLIError.Code))
}
