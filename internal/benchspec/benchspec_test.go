package benchspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/forecastbench/internal/domain/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "vendor_config.json", `{
  "datasets": ["retail", "energy"],
  "vendors": [
    {"name": "A", "forecast_files": {"retail": "a_retail.csv", "energy": "/abs/a_energy.csv"}},
    {"name": "B", "forecast_files": {"retail": "b_retail.csv"}}
  ]
}`)

	s, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, s.VendorNames())
	assert.Equal(t, []string{"retail", "energy"}, s.DatasetKeys())
	assert.Equal(t, filepath.Join(dir, "a_retail.csv"), s.Vendors[0].ForecastFiles["retail"])
	assert.Equal(t, "/abs/a_energy.csv", s.Vendors[0].ForecastFiles["energy"])

	jobs := s.Jobs()
	require.Len(t, jobs, 4)
	assert.Equal(t, model.Job{Vendor: "A", Dataset: "retail", Source: filepath.Join(dir, "a_retail.csv")}, jobs[0])
	assert.Equal(t, model.Job{Vendor: "B", Dataset: "energy"}, jobs[3])
}

func TestLoad_YAMLLegacyForecastFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "spec.yaml", `
vendors:
  - name: Solo
    forecast_file: data/solo.csv
`)

	s, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, []string{LegacyDataset}, s.DatasetKeys())
	assert.Equal(t, filepath.Join(dir, "data", "solo.csv"), s.Vendors[0].ForecastFiles[LegacyDataset])
	assert.Empty(t, s.Vendors[0].ForecastFile)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "absent.json"))
	assert.ErrorIs(t, err, ErrLoadSpec)

	p := writeFile(t, dir, "broken.json", `{"vendors": [`)
	_, err = Load(p)
	assert.ErrorIs(t, err, ErrLoadSpec)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no vendors", `{"datasets": ["d"], "vendors": []}`},
		{"unnamed vendor", `{"vendors": [{"forecast_files": {"d": "x.csv"}}]}`},
		{"vendor without files", `{"vendors": [{"name": "A"}]}`},
		{"empty dataset key", `{"vendors": [{"name": "A", "forecast_files": {"": "x.csv"}}]}`},
		{"empty path", `{"vendors": [{"name": "A", "forecast_files": {"d": " "}}]}`},
		{"blank declared dataset", `{"datasets": [""], "vendors": [{"name": "A", "forecast_files": {"d": "x.csv"}}]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.body))
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}
}

func TestSpec_DuplicateVendors(t *testing.T) {
	s, err := Parse([]byte(`{
  "datasets": ["d1", "d2"],
  "vendors": [
    {"name": "A", "forecast_files": {"d1": "old.csv", "d2": "old2.csv"}},
    {"name": "B", "forecast_files": {"d1": "b.csv"}},
    {"name": "A", "forecast_files": {"d1": "new.csv"}}
  ]
}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, s.Duplicates())
	assert.Equal(t, []string{"A", "B"}, s.VendorNames())

	jobs := s.Jobs()
	require.Len(t, jobs, 4)
	assert.Equal(t, "new.csv", jobs[0].Source)
	assert.Empty(t, jobs[1].Source, "later entry replaces the earlier one wholesale")
	assert.Equal(t, "B", jobs[2].Vendor)
}

func TestSpec_UndeclaredDatasetsFollowDeclared(t *testing.T) {
	s, err := Parse([]byte(`{
  "datasets": ["z"],
  "vendors": [{"name": "A", "forecast_files": {"z": "z.csv", "b": "b.csv", "a": "a.csv"}}]
}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "b"}, s.DatasetKeys())
}
