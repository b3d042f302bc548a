package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format names an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// Output file names inside the report directory.
const (
	JSONFile  = "benchmark_results.json"
	YAMLFile  = "benchmark_results.yaml"
	TableFile = "benchmark_summary.txt"
)

// ErrUnknownFormat is returned for format names other than json, yaml or table.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormats parses format names, dropping duplicates. Entries may be
// comma separated.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]struct{}, len(names))
	var out []Format
	for _, raw := range names {
		for _, part := range strings.Split(raw, ",") {
			f := Format(strings.ToLower(strings.TrimSpace(part)))
			if f == "" {
				continue
			}
			switch f {
			case FormatJSON, FormatYAML, FormatTable:
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, part)
			}
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out, nil
}

// WriteAll writes the report in every format to dir and returns the paths
// written.
func WriteAll(r *Report, dir string, formats []Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		var (
			path string
			err  error
		)
		switch f {
		case FormatJSON:
			path = filepath.Join(dir, JSONFile)
			err = WriteJSON(r, path)
		case FormatYAML:
			path = filepath.Join(dir, YAMLFile)
			err = WriteYAML(r, path)
		case FormatTable:
			path = filepath.Join(dir, TableFile)
			err = writeTableFile(r, path)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTableFile(r *Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := WriteTable(r, f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
