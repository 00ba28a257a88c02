package summary

import (
	"fmt"
	"os"
	"path/filepath"

	"yqhp/loadtest-engine/pkg/logger"
	"yqhp/loadtest-engine/pkg/types"

	"go.uber.org/zap"
)

// WriteFiles writes the JSON and HTML artifacts named in spec. Empty paths are skipped.
func WriteFiles(r *types.SummaryReport, spec types.SummarySpec) error {
	if spec.JSONPath != "" {
		data, err := JSON(r)
		if err != nil {
			return fmt.Errorf("encode json summary: %w", err)
		}
		if err := writeFile(spec.JSONPath, data); err != nil {
			return err
		}
	}
	if spec.HTMLPath != "" {
		data, err := HTML(r)
		if err != nil {
			return fmt.Errorf("render html summary: %w", err)
		}
		if err := writeFile(spec.HTMLPath, data); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Info("summary written", zap.String("path", path), zap.Int("bytes", len(data)))
	return nil
}
