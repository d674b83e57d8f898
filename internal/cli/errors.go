package cli

import (
	"context"
	"errors"

	"github.com/dl-alexandre/phonesync/internal/profile"
	syncengine "github.com/dl-alexandre/phonesync/internal/sync"
	"github.com/dl-alexandre/phonesync/internal/types"
	"github.com/dl-alexandre/phonesync/internal/utils"
)

// cliErrorFor maps an error to a stable CLI error. Errors outside the
// known taxonomy get the fallback code.
func cliErrorFor(err error, fallback string) types.CLIError {
	var (
		connErr      *syncengine.ConnectionError
		localErr     *syncengine.LocalDirectoryError
		listErr      *syncengine.ListingError
		transferErr  *syncengine.TransferError
		watermarkErr *syncengine.WatermarkError
	)

	switch {
	case errors.As(err, &connErr):
		code := utils.ErrCodeConnectionError
		if connErr.AuthRejected {
			code = utils.ErrCodeAuthRejected
		}
		return utils.NewCLIError(code, err.Error()).
			WithRetryable(!connErr.AuthRejected).
			WithContext("address", connErr.Addr).
			Build()
	case errors.As(err, &localErr):
		return utils.NewCLIError(utils.ErrCodeLocalDirectory, err.Error()).
			WithContext("directory", localErr.Dir).
			Build()
	case errors.As(err, &listErr):
		return utils.NewCLIError(utils.ErrCodeListingError, err.Error()).
			WithRetryable(true).
			WithContext("path", listErr.Path).
			Build()
	case errors.As(err, &transferErr):
		return utils.NewCLIError(utils.ErrCodeTransferError, err.Error()).
			WithRetryable(true).
			WithContext("remotePath", transferErr.RemotePath).
			WithContext("localPath", transferErr.LocalPath).
			Build()
	case errors.As(err, &watermarkErr):
		return utils.NewCLIError(utils.ErrCodeWatermarkError, err.Error()).
			WithContext("directory", watermarkErr.Dir).
			Build()
	case errors.Is(err, profile.ErrProfileNotFound):
		return utils.NewCLIError(utils.ErrCodeProfileNotFound, err.Error()).Build()
	case errors.Is(err, profile.ErrCredentialMissing):
		return utils.NewCLIError(utils.ErrCodeCredentialMissing, err.Error()).Build()
	case errors.Is(err, syncengine.ErrInvalidProfile):
		return utils.NewCLIError(utils.ErrCodeProfileInvalid, err.Error()).Build()
	case errors.Is(err, context.Canceled):
		return utils.NewCLIError(utils.ErrCodeCancelled, err.Error()).Build()
	case errors.Is(err, context.DeadlineExceeded):
		return utils.NewCLIError(utils.ErrCodeTimeout, err.Error()).WithRetryable(true).Build()
	}
	return utils.NewCLIError(fallback, err.Error()).Build()
}

// writeFailure writes the error envelope. The command itself only fails,
// and so sets a non-zero exit status, under --strict.
func writeFailure(out *OutputWriter, command string, cliErr types.CLIError) error {
	if werr := out.WriteError(command, cliErr); werr != nil {
		return werr
	}
	if GetGlobalFlags().Strict {
		return utils.NewAppError(cliErr)
	}
	return nil
}
