package cmd

import (
	"errors"
	"fmt"
	"testing"

	"yqhp/loadtest-engine/internal/config"
	"yqhp/loadtest-engine/internal/runner"
	"yqhp/loadtest-engine/pkg/types"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil", nil, ExitOK},
		{"explicit", withCode(ExitThresholdsFailed, errors.New("thresholds failed")), ExitThresholdsFailed},
		{"wrapped explicit", fmt.Errorf("outer: %w", withCode(ExitInterrupted, errors.New("stop"))), ExitInterrupted},
		{"validation", config.ValidationErrors{{Field: "stages", Message: "required"}}, ExitInvalidConfig},
		{"profile", fmt.Errorf("%w %q", config.ErrUnknownProfile, "x"), ExitInvalidConfig},
		{"setup", fmt.Errorf("%w: status 503", runner.ErrSetupFailed), ExitSetupFailed},
		{"other", errors.New("boom"), ExitGenericError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCodeFor(tc.err))
		})
	}
}

func TestReportExitCode(t *testing.T) {
	assert.Equal(t, ExitGenericError, ReportExitCode(nil))
	assert.Equal(t, ExitOK, ReportExitCode(&types.SummaryReport{Passed: true}))
	assert.Equal(t, ExitThresholdsFailed, ReportExitCode(&types.SummaryReport{Passed: false}))
	assert.Equal(t, ExitInterrupted, ReportExitCode(&types.SummaryReport{Passed: true, Interrupted: true}))
	assert.Equal(t, ExitAbortedByThreshold, ReportExitCode(&types.SummaryReport{Interrupted: true, AbortedByThreshold: true}))
}

func TestWithCodeNil(t *testing.T) {
	assert.NoError(t, withCode(ExitGenericError, nil))
}
