// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mineru-bridge/pkg/types"
)

// WriteResult writes the converted markdown to outDir/<baseName>.md plus a
// YAML metadata sidecar outDir/<baseName>.yaml recording the task id,
// originating PDF, and timing. It returns the markdown path.
func WriteResult(outDir, baseName, sourcePDF string, out Outcome) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", outDir, err)
	}

	mdPath := filepath.Join(outDir, baseName+".md")
	if err := os.WriteFile(mdPath, []byte(out.Markdown), 0o644); err != nil {
		return "", fmt.Errorf("writing markdown %s: %w", mdPath, err)
	}

	meta := types.ResultMeta{
		TaskID:      out.TaskID,
		SourcePDF:   sourcePDF,
		Duration:    out.Duration,
		ConvertedAt: time.Now().UTC(),
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling result metadata: %w", err)
	}
	metaPath := filepath.Join(outDir, baseName+".yaml")
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing metadata %s: %w", metaPath, err)
	}

	return mdPath, nil
}
