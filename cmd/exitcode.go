package cmd

import (
	"errors"

	"yqhp/loadtest-engine/internal/config"
	"yqhp/loadtest-engine/internal/runner"
	"yqhp/loadtest-engine/pkg/types"
)

// ExitCode is the process status reported to CI.
type ExitCode int

// Process exit codes, compatible with k6.
const (
	ExitOK                 ExitCode = 0
	ExitGenericError       ExitCode = 1
	ExitThresholdsFailed   ExitCode = 99
	ExitInvalidConfig      ExitCode = 104
	ExitInterrupted        ExitCode = 105
	ExitSetupFailed        ExitCode = 107
	ExitAbortedByThreshold ExitCode = 108
)

// ExitError carries an exit code through cobra's error return.
type ExitError struct {
	Code ExitCode
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

func withCode(code ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCodeFor maps an error returned by a command to an exit code.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var verrs config.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, config.ErrUnknownProfile):
		return ExitInvalidConfig
	case errors.Is(err, runner.ErrSetupFailed):
		return ExitSetupFailed
	default:
		return ExitGenericError
	}
}

// ReportExitCode judges a finished run. An abort by threshold wins over an
// operator interrupt, which wins over plain threshold failures.
func ReportExitCode(r *types.SummaryReport) ExitCode {
	switch {
	case r == nil:
		return ExitGenericError
	case r.AbortedByThreshold:
		return ExitAbortedByThreshold
	case r.Interrupted:
		return ExitInterrupted
	case !r.Passed:
		return ExitThresholdsFailed
	default:
		return ExitOK
	}
}
