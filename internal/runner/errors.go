package runner

import "errors"

var (
	// ErrSetupFailed is returned when the pre-run health probe fails. No load
	// was generated and no report exists.
	ErrSetupFailed = errors.New("setup health probe failed")

	// ErrNilPlan is returned by New without a plan.
	ErrNilPlan = errors.New("test plan is nil")

	// ErrAlreadyRun is returned when Run is called a second time.
	ErrAlreadyRun = errors.New("controller already ran")
)
