// Package dataset reads vendor forecast files into observations.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/okian/forecastbench/internal/domain/model"
)

// Column names, matched case-insensitively.
const (
	ColumnDate     = "date"
	ColumnActual   = "actual"
	ColumnForecast = "forecast"
)

// ErrMalformedSource marks files that exist but cannot be parsed. It always
// travels together with model.ErrUnreadableSource.
var ErrMalformedSource = errors.New("malformed source")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVLoader loads Date,Actual,Forecast CSV files.
type CSVLoader struct{}

// NewCSVLoader creates a CSV loader.
func NewCSVLoader() *CSVLoader { return &CSVLoader{} }

// Load opens source and parses it. An empty source or a file that does not
// exist yields model.ErrSourceNotFound.
func (l *CSVLoader) Load(ctx context.Context, source string) ([]model.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if source == "" {
		return nil, fmt.Errorf("csv: %w: no file configured", model.ErrSourceNotFound)
	}
	f, err := os.Open(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("csv: %w: %s", model.ErrSourceNotFound, source)
		}
		return nil, fmt.Errorf("csv: %w: open %s: %w", model.ErrUnreadableSource, source, err)
	}
	defer f.Close() //nolint:errcheck

	obs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv: %s: %w", source, err)
	}
	return obs, nil
}

// ReadCSV parses observations from r. The first row holds the headers;
// extra columns are ignored and blank numeric cells become NaN.
func ReadCSV(r io.Reader) ([]model.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, malformed("parse: %v", err)
	}
	if len(records) == 0 {
		return nil, malformed("empty file (no header row)")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, name := range []string{ColumnDate, ColumnActual, ColumnForecast} {
		if _, ok := cols[name]; !ok {
			return nil, malformed("missing column %q", name)
		}
	}

	obs := make([]model.Observation, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2
		date, err := parseDate(rec[cols[ColumnDate]])
		if err != nil {
			return nil, malformed("row %d: %v", line, err)
		}
		actual, err := parseValue(rec[cols[ColumnActual]])
		if err != nil {
			return nil, malformed("row %d: actual: %v", line, err)
		}
		forecast, err := parseValue(rec[cols[ColumnForecast]])
		if err != nil {
			return nil, malformed("row %d: forecast: %v", line, err)
		}
		obs = append(obs, model.Observation{Date: date, Actual: actual, Forecast: forecast})
	}
	return obs, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", model.ErrUnreadableSource, ErrMalformedSource, fmt.Sprintf(format, args...))
}
