// Package report renders benchmark results as JSON, YAML and text tables.
package report

import (
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/forecastbench/internal/domain/model"
)

// Report is the envelope written to disk for one run.
type Report struct {
	RunID       string                 `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time              `json:"generated_at" yaml:"generated_at"`
	Vendors     []string               `json:"vendors" yaml:"vendors"`
	Datasets    []string               `json:"datasets" yaml:"datasets"`
	Environment EnvironmentInfo        `json:"environment" yaml:"environment"`
	Result      *model.BenchmarkResult `json:"result" yaml:"result"`
}

// EnvironmentInfo describes where the run happened.
type EnvironmentInfo struct {
	GoVersion string `json:"go_version" yaml:"go_version"`
	OS        string `json:"os" yaml:"os"`
	Arch      string `json:"arch" yaml:"arch"`
	NumCPU    int    `json:"num_cpu" yaml:"num_cpu"`
}

// NewEnvironmentInfo captures the current runtime.
func NewEnvironmentInfo() EnvironmentInfo {
	return EnvironmentInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
	}
}

// New wraps a result in a report. An empty runID gets a fresh UUID.
func New(runID string, res *model.BenchmarkResult) *Report {
	if runID == "" {
		runID = uuid.NewString()
	}
	r := &Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Vendors:     []string{},
		Datasets:    []string{},
		Environment: NewEnvironmentInfo(),
		Result:      res,
	}
	if res != nil {
		r.Vendors = res.VendorOrder
		r.Datasets = res.DatasetOrder
	}
	return r
}
