// Package runner sequences one load-test run: setup probe, staged ramp,
// drain, teardown, threshold evaluation and the final report.
package runner
