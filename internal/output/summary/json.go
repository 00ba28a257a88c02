package summary

import (
	"yqhp/loadtest-engine/pkg/types"

	"github.com/bytedance/sonic"
)

// JSON encodes the report as indented JSON.
func JSON(r *types.SummaryReport) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(r, "", "  ")
}

// ParseJSON decodes a report written by JSON.
func ParseJSON(data []byte) (*types.SummaryReport, error) {
	var r types.SummaryReport
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
