package bench

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

const rule = "------------------------------------------------------------"

// WriteReport renders reports as the human-readable comparison: elapsed time
// and throughput per pass, then observed against expected false positives.
func WriteReport(w io.Writer, cfg Config, reports []KindReport) error {
	bw := &errWriter{w: w}

	bw.printf("%s\n", strings.Repeat("=", len(rule)))
	bw.printf("BLOOM FILTER BENCHMARK\n")
	bw.printf("CONFIGURATION: N=%s, Capacity=%s, Error Rate=%g, Seed=%d\n",
		humanize.Comma(int64(cfg.N)), humanize.Comma(int64(cfg.EffectiveCapacity())), cfg.FPRate, cfg.Seed)
	bw.printf("%s\n", strings.Repeat("=", len(rule)))

	for _, r := range reports {
		writeKind(bw, r)
	}

	bw.printf("\n%s\nBENCHMARK COMPLETE\n%s\n", strings.Repeat("=", len(rule)), strings.Repeat("=", len(rule)))
	return bw.err
}

func writeKind(bw *errWriter, r KindReport) {
	bw.printf("\n%s (N=%s):\n%s\n", strings.ToUpper(string(r.Kind)), humanize.Comma(int64(r.N)), rule)
	if r.Err != nil {
		bw.printf("  ERROR: %v\n", r.Err)
		return
	}
	bw.printf("  Universe: %s keys (estimated distinct %s)\n",
		humanize.Comma(int64(2*r.N)), humanize.Comma(int64(r.EstimatedDistinct)))

	bw.printf("  Insertion:\n")
	writeTable(bw, r.Results, func(res Result) string {
		return fmt.Sprintf("%.4fs\t(%s items/sec)", res.Insert.Seconds(), rate(r.N, res.Insert))
	})

	bw.printf("  Query (present):\n")
	writeTable(bw, r.Results, func(res Result) string {
		return fmt.Sprintf("%.4fs\t(%s queries/sec)\tfound %s/%s",
			res.Query.Seconds(), rate(r.N, res.Query), humanize.Comma(int64(res.Found)), humanize.Comma(int64(r.N)))
	})

	bw.printf("  False Positives:\n")
	bw.printf("    Expected: %s\n", humanize.Comma(int64(r.ExpectedFalsePositives+0.5)))
	writeTable(bw, r.Results, func(res Result) string {
		return fmt.Sprintf("%s\t(%.4f%%)", humanize.Comma(int64(res.FalsePositives)), percent(res.FalsePositives, r.N))
	})
}

// writeTable prints one aligned line per result. Failed results print their
// error in place of the measurement.
func writeTable(bw *errWriter, results []Result, line func(Result) string) {
	tw := tabwriter.NewWriter(bw, 0, 4, 1, ' ', 0)
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(tw, "    %s:\tERROR: %v\n", res.Candidate, res.Err)
			continue
		}
		fmt.Fprintf(tw, "    %s:\t%s\n", res.Candidate, line(res))
	}
	if err := tw.Flush(); err != nil && bw.err == nil {
		bw.err = err
	}
}

func rate(n int, d time.Duration) string {
	if d <= 0 {
		return "inf"
	}
	return humanize.Comma(int64(Throughput(n, d)))
}

func percent(count, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(count) / float64(n) * 100
}

// errWriter remembers the first write error so the report code can print
// without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}
