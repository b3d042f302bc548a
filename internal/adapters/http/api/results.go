package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/forecastbench/internal/domain/model"
)

// ResultsHandler serves views of the latest benchmark result.
type ResultsHandler struct {
	deps ResultProvider
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ResultProvider) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

type summaryResponse struct {
	RankingMetric model.MetricName                `json:"ranking_metric"`
	Summary       map[string]model.DatasetSummary `json:"summary"`
	OverallBest   model.OverallBest               `json:"overall_best"`
	Overall       []model.Standing                `json:"overall_ranking"`
}

type vendorResponse struct {
	Vendor   string                        `json:"vendor"`
	Datasets map[string]model.MetricRecord `json:"datasets"`
	Overall  *model.Standing               `json:"overall"`
	Failures []model.Failure               `json:"failures"`
}

type datasetResponse struct {
	Dataset string                        `json:"dataset"`
	Summary model.DatasetSummary          `json:"summary"`
	Vendors map[string]model.MetricRecord `json:"vendors"`
}

// HandleGetResults handles GET /results requests.
func (h *ResultsHandler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r, "api.get_results")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetSummary handles GET /summary requests.
func (h *ResultsHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r, "api.get_summary")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		RankingMetric: res.RankingMetric,
		Summary:       res.Summary,
		OverallBest:   res.OverallBest,
		Overall:       res.Overall,
	})
}

// HandleGetVendor handles GET /vendors/{name} requests.
func (h *ResultsHandler) HandleGetVendor(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_vendor"
	name, ok := pathParam(w, r, "/vendors/")
	if !ok {
		return
	}
	res, ok := h.load(w, r, op)
	if !ok {
		return
	}
	records, found := res.Vendors[name]
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: vendor %q", op, ErrNotFound, name))
		return
	}
	out := vendorResponse{Vendor: name, Datasets: records, Failures: []model.Failure{}}
	for i := range res.Overall {
		if res.Overall[i].Vendor == name {
			st := res.Overall[i]
			out.Overall = &st
			break
		}
	}
	for _, f := range res.Failures {
		if f.Vendor == name {
			out.Failures = append(out.Failures, f)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetDataset handles GET /datasets/{key} requests.
func (h *ResultsHandler) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_dataset"
	key, ok := pathParam(w, r, "/datasets/")
	if !ok {
		return
	}
	res, ok := h.load(w, r, op)
	if !ok {
		return
	}
	summary, found := res.Summary[key]
	if !found {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("%s: %w: dataset %q", op, ErrNotFound, key))
		return
	}
	vendors := make(map[string]model.MetricRecord)
	for _, v := range res.VendorOrder {
		if rec, ok := res.Record(v, key); ok {
			vendors[v] = rec
		}
	}
	writeJSON(w, http.StatusOK, datasetResponse{Dataset: key, Summary: summary, Vendors: vendors})
}

func (h *ResultsHandler) load(w http.ResponseWriter, r *http.Request, op string) (*model.BenchmarkResult, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return nil, false
	}
	res, err := h.deps.Result(r.Context())
	if err != nil {
		writeNoResult(w, op, err)
		return nil, false
	}
	return res, true
}

// pathParam extracts the single segment after prefix.
func pathParam(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return "", false
	}
	p := strings.TrimPrefix(r.URL.Path, prefix)
	if p == "" || strings.Contains(p, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return "", false
	}
	return p, true
}

func writeNoResult(w http.ResponseWriter, op string, err error) {
	writeError(w, http.StatusServiceUnavailable, "no_result", fmt.Errorf("%s: %w: %w", op, ErrNoResult, err))
}
