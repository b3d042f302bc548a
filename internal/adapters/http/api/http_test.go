package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/forecastbench/internal/adapters/http/api"
	"github.com/okian/forecastbench/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDeps struct {
	result   *model.BenchmarkResult
	err      error
	rerunErr error
	reruns   int
	stats    map[string]interface{}
}

func (m *mockDeps) Result(_ context.Context) (*model.BenchmarkResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockDeps) Rerun(_ context.Context) (*model.BenchmarkResult, error) {
	if m.rerunErr != nil {
		return nil, m.rerunErr
	}
	m.reruns++
	return m.result, nil
}

func (m *mockDeps) GetStats() map[string]interface{} {
	return m.stats
}

func fixture() *model.BenchmarkResult {
	rec := func(mape float64) model.MetricRecord {
		return model.MetricRecord{MAPE: model.Defined(mape), MAE: model.Defined(1), RecordCount: 5}
	}
	return &model.BenchmarkResult{
		RankingMetric: model.MetricMAPE,
		VendorOrder:   []string{"A", "B", "C"},
		DatasetOrder:  []string{"retail"},
		Vendors: map[string]map[string]model.MetricRecord{
			"A": {"retail": rec(4.06)},
			"B": {"retail": rec(2.5)},
			"C": {},
		},
		Summary: map[string]model.DatasetSummary{
			"retail": {BestVendor: "B", BestScore: model.Defined(2.5), Ranking: []model.Standing{
				{Rank: 1, Vendor: "B", Score: model.Defined(2.5)},
				{Rank: 2, Vendor: "A", Score: model.Defined(4.06)},
			}},
		},
		OverallBest: model.OverallBest{Vendor: "B", AvgScore: model.Defined(2.5), Datasets: 1},
		Overall: []model.Standing{
			{Rank: 1, Vendor: "B", Score: model.Defined(2.5), Datasets: 1},
			{Rank: 2, Vendor: "A", Score: model.Defined(4.06), Datasets: 1},
		},
		Failures: []model.Failure{{Vendor: "C", Dataset: "retail", Kind: model.FailureUnreadable, Message: "bad header"}},
		Missing:  []model.PairKey{},
	}
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given an API server with a finished result", t, func() {
		deps := &mockDeps{result: fixture(), stats: map[string]interface{}{"runs": 1}}
		mux := http.NewServeMux()
		api.NewServer(deps, 10).Register(context.Background(), mux)

		Convey("Health and metrics endpoints respond", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")

			w = serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "forecastbench_")
		})

		Convey("Stats are served as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode(w)["runs"], ShouldEqual, 1.0)
		})

		Convey("The full result is served", func() {
			w := serve(mux, http.MethodGet, "/results")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["ranking_metric"], ShouldEqual, "MAPE")
			So(body["overall_best"].(map[string]any)["vendor"], ShouldEqual, "B")
		})

		Convey("The summary omits per-vendor records", func() {
			w := serve(mux, http.MethodGet, "/summary")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body, ShouldContainKey, "summary")
			So(body, ShouldNotContainKey, "vendors")
			So(body["overall_ranking"], ShouldHaveLength, 2)
		})

		Convey("A vendor view includes its overall standing and failures", func() {
			w := serve(mux, http.MethodGet, "/vendors/A")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["overall"].(map[string]any)["rank"], ShouldEqual, 2.0)

			w = serve(mux, http.MethodGet, "/vendors/C")
			So(w.Code, ShouldEqual, http.StatusOK)
			body = decode(w)
			So(body["overall"], ShouldBeNil)
			So(body["failures"], ShouldHaveLength, 1)
		})

		Convey("Unknown vendors and datasets are 404", func() {
			So(serve(mux, http.MethodGet, "/vendors/Z").Code, ShouldEqual, http.StatusNotFound)
			w := serve(mux, http.MethodGet, "/datasets/energy")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("Malformed path parameters are 400", func() {
			So(serve(mux, http.MethodGet, "/vendors/").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/datasets/a/b").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A dataset view lists scored vendors", func() {
			w := serve(mux, http.MethodGet, "/datasets/retail")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["summary"].(map[string]any)["best_vendor"], ShouldEqual, "B")
			So(body["vendors"], ShouldHaveLength, 2)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given a leaderboard handler", t, func() {
		deps := &mockDeps{result: fixture()}
		mux := http.NewServeMux()
		api.NewServer(deps, 10).Register(context.Background(), mux)

		Convey("A valid limit truncates the ranking", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=1")
			So(w.Code, ShouldEqual, http.StatusOK)
			var rows []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 1)
			So(rows[0]["vendor"], ShouldEqual, "B")
		})

		Convey("No limit returns the whole ranking up to the cap", func() {
			w := serve(mux, http.MethodGet, "/leaderboard")
			var rows []map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &rows), ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
		})

		Convey("Invalid limits are rejected", func() {
			So(serve(mux, http.MethodGet, "/leaderboard?limit=0").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/leaderboard?limit=abc").Code, ShouldEqual, http.StatusBadRequest)
			w := serve(mux, http.MethodGet, "/leaderboard?limit=11")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("Other methods are not found", func() {
			So(serve(mux, http.MethodPost, "/leaderboard?limit=1").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestNoResultYet(t *testing.T) {
	Convey("Given a service that has not finished a run", t, func() {
		deps := &mockDeps{err: errors.New("no benchmark result yet")}
		mux := http.NewServeMux()
		api.NewServer(deps, 0).Register(context.Background(), mux)

		Convey("Read endpoints answer 503", func() {
			for _, path := range []string{"/results", "/summary", "/leaderboard", "/vendors/A", "/datasets/retail"} {
				w := serve(mux, http.MethodGet, path)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "no_result")
			}
		})
	})
}

func TestRunsHandler(t *testing.T) {
	Convey("Given a runs endpoint", t, func() {
		deps := &mockDeps{result: fixture()}
		mux := http.NewServeMux()
		api.NewServer(deps, 10).Register(context.Background(), mux)

		Convey("POST triggers a rerun", func() {
			w := serve(mux, http.MethodPost, "/runs")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["status"], ShouldEqual, "ok")
			So(body["scored"], ShouldEqual, 2.0)
			So(body["failures"], ShouldEqual, 1.0)
			So(deps.reruns, ShouldEqual, 1)
		})

		Convey("GET is not allowed", func() {
			w := serve(mux, http.MethodGet, "/runs")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})

		Convey("A failing run is a 500", func() {
			deps.rerunErr = errors.New("disk full")
			w := serve(mux, http.MethodPost, "/runs")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode(w)["code"], ShouldEqual, "run_failed")
			So(strings.Contains(decode(w)["message"].(string), "disk full"), ShouldBeTrue)
		})

		Convey("A run without a configured spec is unavailable", func() {
			deps.rerunErr = fmt.Errorf("rerun: %w", model.ErrNoSpec)
			w := serve(mux, http.MethodPost, "/runs")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "no_spec")
			So(deps.reruns, ShouldEqual, 0)
		})
	})
}
