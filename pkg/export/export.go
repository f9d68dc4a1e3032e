// Package export turns the heterogeneous outputs accumulated during a
// workflow run into flat row records and renders them as CSV, JSON, Excel,
// plain-text, or PDF artifacts.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Row is a flattened record ready for tabular or report rendering.
type Row map[string]any

// ErrNoData is returned when normalization yields zero rows; exporters
// return it instead of writing an empty file.
var ErrNoData = errors.New("no data to export")

// Options controls where an exporter writes its artifact.
type Options struct {
	// OutputDir is the directory for default-named files; created if missing.
	OutputDir string
	// Path, when set, is used verbatim instead of a generated name.
	Path string
	// DefaultName is the filename stem used when Path is empty.
	DefaultName string
}

// Result describes a written artifact.
type Result struct {
	FilePath    string `json:"file_path"`
	RowsWritten int    `json:"rows_written"`
	Format      string `json:"format"`
}

// resolvePath picks the output file path: the explicit configured path, or a
// timestamped default name inside the output directory.
func (o Options) resolvePath(ext string) (string, error) {
	if o.Path != "" {
		if dir := filepath.Dir(o.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("create output directory: %w", err)
			}
		}
		return o.Path, nil
	}

	dir := o.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	name := o.DefaultName
	if name == "" {
		name = "export"
	}
	filename := fmt.Sprintf("%s_%s.%s", name, time.Now().Format("20060102_150405"), ext)
	return filepath.Join(dir, filename), nil
}

// Columns computes the union of keys across all rows. Order is first-seen by
// row, with each row's keys visited in sorted order so the result is
// deterministic.
func Columns(rows []Row) []string {
	var columns []string
	seen := make(map[string]bool)
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	return columns
}

// cellString renders a cell value for text-oriented formats. Nested values
// are serialized to JSON rather than Go's default formatting.
func cellString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64, float32, int, int64, int32, bool:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
