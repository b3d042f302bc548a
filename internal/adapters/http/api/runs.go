package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/forecastbench/internal/domain/model"
)

// RunsHandler triggers benchmark runs.
type RunsHandler struct {
	deps Runner
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps Runner) *RunsHandler {
	return &RunsHandler{deps: deps}
}

type runResponse struct {
	Status      string            `json:"status"`
	OverallBest model.OverallBest `json:"overall_best"`
	Scored      int               `json:"scored"`
	Failures    int               `json:"failures"`
	Missing     int               `json:"missing"`
}

// HandlePostRun handles POST /runs. The run completes before the response
// is written.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	res, err := h.deps.Rerun(r.Context())
	if errors.Is(err, model.ErrNoSpec) {
		writeError(w, http.StatusServiceUnavailable, "no_spec", fmt.Errorf("%s: %w: %w", op, ErrNoSpec, err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "run_failed", fmt.Errorf("%s: %w", op, err))
		return
	}
	scored := 0
	for _, byDataset := range res.Vendors {
		scored += len(byDataset)
	}
	writeJSON(w, http.StatusOK, runResponse{
		Status:      "ok",
		OverallBest: res.OverallBest,
		Scored:      scored,
		Failures:    len(res.Failures),
		Missing:     len(res.Missing),
	})
}
