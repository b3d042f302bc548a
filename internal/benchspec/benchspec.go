// Package benchspec loads the benchmark description: which datasets exist
// and where each vendor's forecast file for a dataset lives.
package benchspec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/forecastbench/internal/domain/model"
)

// LegacyDataset is the dataset key used for a vendor's single forecast_file.
const LegacyDataset = "single"

// Sentinel errors for spec loading.
var (
	ErrInvalidSpec = errors.New("invalid benchmark spec")
	ErrLoadSpec    = errors.New("load benchmark spec failed")
)

// Vendor lists one vendor's forecast files keyed by dataset.
type Vendor struct {
	Name          string            `yaml:"name" json:"name"`
	ForecastFiles map[string]string `yaml:"forecast_files" json:"forecast_files"`
	ForecastFile  string            `yaml:"forecast_file,omitempty" json:"forecast_file,omitempty"`
}

// Spec describes a benchmark run.
type Spec struct {
	Datasets []string `yaml:"datasets" json:"datasets"`
	Vendors  []Vendor `yaml:"vendors" json:"vendors"`
}

// Load reads and validates a spec file. JSON is accepted since it is valid
// YAML. Relative forecast paths resolve against the spec file's directory.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadSpec, path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.resolve(filepath.Dir(path))
	return s, nil
}

// Parse decodes and validates spec content without touching the filesystem.
func Parse(data []byte) (*Spec, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadSpec, err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// normalize folds the legacy forecast_file into forecast_files.
func (s *Spec) normalize() {
	for i := range s.Vendors {
		v := &s.Vendors[i]
		v.Name = strings.TrimSpace(v.Name)
		if v.ForecastFile == "" {
			continue
		}
		if v.ForecastFiles == nil {
			v.ForecastFiles = make(map[string]string, 1)
		}
		if _, ok := v.ForecastFiles[LegacyDataset]; !ok {
			v.ForecastFiles[LegacyDataset] = v.ForecastFile
		}
		v.ForecastFile = ""
	}
}

// Validate checks the spec's structural rules.
func (s *Spec) Validate() error {
	if len(s.Vendors) == 0 {
		return fmt.Errorf("%w: no vendors", ErrInvalidSpec)
	}
	for _, ds := range s.Datasets {
		if strings.TrimSpace(ds) == "" {
			return fmt.Errorf("%w: empty dataset key", ErrInvalidSpec)
		}
	}
	for i, v := range s.Vendors {
		if v.Name == "" {
			return fmt.Errorf("%w: vendor %d has no name", ErrInvalidSpec, i)
		}
		if len(v.ForecastFiles) == 0 {
			return fmt.Errorf("%w: vendor %q has no forecast files", ErrInvalidSpec, v.Name)
		}
		for ds, p := range v.ForecastFiles {
			if strings.TrimSpace(ds) == "" {
				return fmt.Errorf("%w: vendor %q has an empty dataset key", ErrInvalidSpec, v.Name)
			}
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: vendor %q has an empty path for %q", ErrInvalidSpec, v.Name, ds)
			}
		}
	}
	return nil
}

func (s *Spec) resolve(dir string) {
	for i := range s.Vendors {
		for ds, p := range s.Vendors[i].ForecastFiles {
			if !filepath.IsAbs(p) {
				s.Vendors[i].ForecastFiles[ds] = filepath.Join(dir, p)
			}
		}
	}
}

// VendorNames returns vendor names in file order without duplicates.
func (s *Spec) VendorNames() []string {
	vendors := s.Effective()
	out := make([]string, len(vendors))
	for i, v := range vendors {
		out[i] = v.Name
	}
	return out
}

// DatasetKeys returns the declared datasets followed by any dataset that a
// vendor references but the list omits, sorted.
func (s *Spec) DatasetKeys() []string {
	seen := make(map[string]struct{}, len(s.Datasets))
	out := make([]string, 0, len(s.Datasets))
	for _, ds := range s.Datasets {
		if _, ok := seen[ds]; ok {
			continue
		}
		seen[ds] = struct{}{}
		out = append(out, ds)
	}
	var extra []string
	for _, v := range s.Vendors {
		for ds := range v.ForecastFiles {
			if _, ok := seen[ds]; ok {
				continue
			}
			seen[ds] = struct{}{}
			extra = append(extra, ds)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Duplicates returns vendor names that appear more than once.
func (s *Spec) Duplicates() []string {
	count := make(map[string]int, len(s.Vendors))
	var out []string
	for _, v := range s.Vendors {
		count[v.Name]++
		if count[v.Name] == 2 {
			out = append(out, v.Name)
		}
	}
	return out
}

// Effective returns one entry per vendor name. A repeated vendor keeps the
// position of its first entry and the files of its last one.
func (s *Spec) Effective() []Vendor {
	idx := make(map[string]int, len(s.Vendors))
	out := make([]Vendor, 0, len(s.Vendors))
	for _, v := range s.Vendors {
		if i, ok := idx[v.Name]; ok {
			out[i] = v
			continue
		}
		idx[v.Name] = len(out)
		out = append(out, v)
	}
	return out
}

// Jobs expands the spec into one job per vendor and dataset, in vendor
// order then dataset order. A vendor without a file for a dataset gets a
// job with an empty source, which the loader reports as missing.
func (s *Spec) Jobs() []model.Job {
	datasets := s.DatasetKeys()
	vendors := s.Effective()
	jobs := make([]model.Job, 0, len(vendors)*len(datasets))
	for _, v := range vendors {
		for _, ds := range datasets {
			jobs = append(jobs, model.Job{Vendor: v.Name, Dataset: ds, Source: v.ForecastFiles[ds]})
		}
	}
	return jobs
}
