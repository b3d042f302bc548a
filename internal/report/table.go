package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/okian/forecastbench/internal/domain/model"
)

// highlightMetrics are summarized per dataset with their best vendor.
var highlightMetrics = []model.MetricName{model.MetricMAPE, model.MetricWAPE, model.MetricRMSE}

// WriteTable renders the report as aligned text tables.
func WriteTable(r *Report, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "\n=== Forecast Accuracy Benchmark ===\n\n")
	fmt.Fprintf(tw, "Run %s, generated %s\n", r.RunID, r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	res := r.Result
	if res == nil {
		fmt.Fprintln(tw, "No results.")
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Ranking metric: %s (lower is better)\n\n", res.RankingMetric)

	for _, ds := range res.DatasetOrder {
		writeDatasetTable(tw, res, ds)
	}
	writeWinnersTable(tw, res)
	writeOverallTable(tw, res)
	writeProblems(tw, res)

	return tw.Flush()
}

func writeDatasetTable(tw *tabwriter.Writer, res *model.BenchmarkResult, ds string) {
	fmt.Fprintf(tw, "--- Dataset: %s ---\n\n", ds)

	names := model.MetricNames()
	header := []string{"Vendor"}
	for _, n := range names {
		header = append(header, string(n))
	}
	header = append(header, "Records")
	writeRow(tw, header)
	writeSeparator(tw, len(header))

	rows := 0
	for _, v := range res.VendorOrder {
		rec, ok := res.Record(v, ds)
		if !ok {
			continue
		}
		row := []string{v}
		for _, n := range names {
			val, _ := rec.Get(n)
			row = append(row, val.String())
		}
		row = append(row, strconv.Itoa(rec.RecordCount))
		writeRow(tw, row)
		rows++
	}
	if rows == 0 {
		fmt.Fprintln(tw, "(no scored vendors)")
	}
	fmt.Fprintln(tw)

	for _, m := range highlightMetrics {
		vendor, val := res.BestByMetric(ds, m)
		if vendor == "" {
			fmt.Fprintf(tw, "Best %s:\tN/A\n", m)
			continue
		}
		fmt.Fprintf(tw, "Best %s:\t%s (%s)\n", m, vendor, val)
	}
	fmt.Fprintln(tw)
}

func writeWinnersTable(tw *tabwriter.Writer, res *model.BenchmarkResult) {
	fmt.Fprintf(tw, "--- Best Vendor per Dataset (%s) ---\n\n", res.RankingMetric)

	header := []string{"Dataset", "Vendor", string(res.RankingMetric)}
	writeRow(tw, header)
	writeSeparator(tw, len(header))

	for _, ds := range res.DatasetOrder {
		s := res.Summary[ds]
		vendor := s.BestVendor
		if vendor == "" {
			vendor = "N/A"
		}
		writeRow(tw, []string{ds, vendor, s.BestScore.String()})
	}
	fmt.Fprintln(tw)
}

func writeOverallTable(tw *tabwriter.Writer, res *model.BenchmarkResult) {
	fmt.Fprintf(tw, "--- Overall Ranking (average %s) ---\n\n", res.RankingMetric)

	header := []string{"Rank", "Vendor", "Average", "Datasets"}
	writeRow(tw, header)
	writeSeparator(tw, len(header))

	for _, st := range res.Overall {
		writeRow(tw, []string{strconv.Itoa(st.Rank), st.Vendor, st.Score.String(), strconv.Itoa(st.Datasets)})
	}
	fmt.Fprintln(tw)

	if res.OverallBest.Vendor != "" {
		fmt.Fprintf(tw, "Overall best: %s (%s %s across %d datasets)\n\n",
			res.OverallBest.Vendor, res.OverallBest.AvgScore, res.RankingMetric, res.OverallBest.Datasets)
	}
}

func writeProblems(tw *tabwriter.Writer, res *model.BenchmarkResult) {
	if len(res.Failures) > 0 {
		fmt.Fprintf(tw, "--- Skipped Pairs ---\n\n")
		header := []string{"Vendor", "Dataset", "Reason", "Detail"}
		writeRow(tw, header)
		writeSeparator(tw, len(header))
		for _, f := range res.Failures {
			writeRow(tw, []string{f.Vendor, f.Dataset, string(f.Kind), f.Message})
		}
		fmt.Fprintln(tw)
	}
	if len(res.Missing) > 0 {
		keys := make([]string, len(res.Missing))
		for i, k := range res.Missing {
			keys[i] = k.String()
		}
		fmt.Fprintf(tw, "Missing data: %s\n\n", strings.Join(keys, ", "))
	}
}

func writeRow(tw *tabwriter.Writer, cols []string) {
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
}

func writeSeparator(tw *tabwriter.Writer, n int) {
	sep := make([]string, n)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(tw, sep)
}
