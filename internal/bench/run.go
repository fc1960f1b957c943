package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jcalabro/dhbloom"
)

// ErrCandidatePanic wraps a panic recovered from a candidate during a run.
var ErrCandidatePanic = errors.New("bench: candidate panicked")

// Config describes one harness run.
type Config struct {
	// N is the size of each dataset half.
	N int
	// Capacity is the capacity every candidate is built with. Zero means N.
	Capacity uint64
	// FPRate is the target false positive rate every candidate is built with.
	FPRate float64
	// Seed drives dataset generation.
	Seed uint64

	Kinds      []Kind
	Candidates []Candidate
}

// DefaultConfig returns a run over every kind and candidate with one million
// items at a 0.1% target rate.
func DefaultConfig() Config {
	return Config{
		N:          1_000_000,
		Capacity:   1_000_000,
		FPRate:     0.001,
		Seed:       42,
		Kinds:      AllKinds(),
		Candidates: DefaultCandidates(),
	}
}

// EffectiveCapacity returns Capacity, or N when Capacity is zero.
func (c Config) EffectiveCapacity() uint64 {
	if c.Capacity == 0 && c.N > 0 {
		return uint64(c.N)
	}
	return c.Capacity
}

// Validate checks the run parameters. Filter parameters are checked with the
// same rules dhbloom applies at construction.
func (c Config) Validate() error {
	if c.N <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, c.N)
	}
	if err := dhbloom.ValidateParams(c.EffectiveCapacity(), c.FPRate); err != nil {
		return err
	}
	if len(c.Kinds) == 0 {
		return errors.New("bench: no dataset kinds selected")
	}
	if len(c.Candidates) == 0 {
		return errors.New("bench: no candidates selected")
	}
	return nil
}

// Result holds the measurements of one candidate over one dataset.
type Result struct {
	Candidate string

	Insert time.Duration
	Query  time.Duration
	// Found is the number of members reported present; anything below N is a
	// false negative.
	Found int
	// FalsePositives is the number of non-members reported present.
	FalsePositives int

	Err error
}

// KindReport holds every candidate's result for one dataset kind.
type KindReport struct {
	Kind Kind
	N    int
	// ExpectedFalsePositives is N * FPRate, for calibration only.
	ExpectedFalsePositives float64
	// EstimatedDistinct is a sketch estimate of the universe size (2N).
	EstimatedDistinct uint64

	Results []Result

	// Err is set when the dataset itself could not be built.
	Err error
}

// Run generates a dataset per kind and measures every candidate against it,
// one candidate at a time. A failure in one kind or one candidate is recorded
// in the report and the run moves on. The context is checked between passes;
// on cancellation Run returns the reports gathered so far with ctx.Err().
func Run(ctx context.Context, cfg Config, logger *slog.Logger) ([]KindReport, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reports := make([]KindReport, 0, len(cfg.Kinds))
	for _, kind := range cfg.Kinds {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := runKind(ctx, cfg, kind, logger)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func runKind(ctx context.Context, cfg Config, kind Kind, logger *slog.Logger) (KindReport, error) {
	report := KindReport{
		Kind:                   kind,
		N:                      cfg.N,
		ExpectedFalsePositives: float64(cfg.N) * cfg.FPRate,
	}
	log := logger.With("kind", kind)

	start := time.Now()
	ds, err := GenerateDataset(kind, cfg.N, cfg.Seed)
	if err != nil {
		log.Warn("dataset generation failed", "err", err)
		report.Err = err
		return report, nil
	}
	report.EstimatedDistinct = ds.EstimatedDistinct()
	log.Debug("dataset ready", "n", cfg.N, "elapsed", time.Since(start), "distinct_estimate", report.EstimatedDistinct)

	capacity := cfg.EffectiveCapacity()
	for _, c := range cfg.Candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := runCandidate(c, capacity, cfg.FPRate, ds)
		if res.Err != nil {
			log.Warn("candidate failed", "candidate", c.Name, "err", res.Err)
		} else {
			log.Debug("candidate done",
				"candidate", c.Name,
				"insert", res.Insert,
				"query", res.Query,
				"found", res.Found,
				"false_positives", res.FalsePositives,
			)
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func runCandidate(c Candidate, capacity uint64, fpRate float64, ds *Dataset) (res Result) {
	res.Candidate = c.Name
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%w: %s: %v", ErrCandidatePanic, c.Name, r)
		}
	}()

	s, err := c.New(capacity, fpRate)
	if err != nil {
		res.Err = fmt.Errorf("construct %s: %w", c.Name, err)
		return res
	}

	res.Insert = MeasureInsertion(s, ds.MemberKeys)
	res.Query, res.Found = MeasureQuery(s, ds.MemberKeys)
	res.FalsePositives = MeasureFalsePositives(s, ds.NonMemberKeys)
	return res
}
