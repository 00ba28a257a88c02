package types

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ThresholdSpec is one pass/fail expression such as "p(95) < 500".
type ThresholdSpec struct {
	Expression     string        `yaml:"threshold" json:"threshold"`
	AbortOnFail    bool          `yaml:"abort_on_fail" json:"abort_on_fail,omitempty"`
	DelayAbortEval time.Duration `yaml:"delay_abort_eval" json:"delay_abort_eval,omitempty"`
}

// UnmarshalYAML accepts either a bare expression string or the object form.
func (t *ThresholdSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t.Expression = value.Value
		return nil
	case yaml.MappingNode:
		type plain ThresholdSpec
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*t = ThresholdSpec(p)
		return nil
	default:
		return fmt.Errorf("line %d: threshold must be a string or a mapping", value.Line)
	}
}

// ThresholdSet maps a metric name to the expressions evaluated against it.
type ThresholdSet map[string][]ThresholdSpec

// Len counts every expression in the set.
func (s ThresholdSet) Len() int {
	n := 0
	for _, specs := range s {
		n += len(specs)
	}
	return n
}

// ThresholdResult is the outcome of one expression at the end of a run.
type ThresholdResult struct {
	Metric      string  `json:"metric"`
	Expression  string  `json:"expression"`
	Observed    float64 `json:"observed"`
	Passed      bool    `json:"passed"`
	AbortOnFail bool    `json:"abort_on_fail,omitempty"`
	// Error is set when the threshold could not be evaluated at all, which is
	// a configuration problem rather than a failed threshold.
	Error string `json:"error,omitempty"`
}
