// Package cli implements the bloombench command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jcalabro/dhbloom/internal/bench"
)

type options struct {
	items      int
	capacity   uint64
	errorRate  float64
	seed       uint64
	kinds      []string
	candidates []string
	verbose    bool
}

// NewRootCommand builds the bloombench command tree. Report output goes to
// the command's stdout, logs to its stderr.
func NewRootCommand() *cobra.Command {
	def := bench.DefaultConfig()
	opts := &options{
		items:     def.N,
		errorRate: def.FPRate,
		seed:      def.Seed,
	}

	cmd := &cobra.Command{
		Use:   "bloombench",
		Short: "Compare bloom filter implementations on generated datasets",
		Long: `bloombench generates disjoint member and non-member datasets, inserts the
members into every selected filter, then reports insertion and query throughput
and the observed false positives against the expected n * error-rate.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&opts.items, "items", "n", opts.items, "Number of members (and of non-members) per dataset")
	flags.Uint64Var(&opts.capacity, "capacity", 0, "Capacity each filter is sized for (0 uses --items)")
	flags.Float64VarP(&opts.errorRate, "error-rate", "e", opts.errorRate, "Target false positive rate, in (0, 1)")
	flags.Uint64Var(&opts.seed, "seed", opts.seed, "Seed for dataset generation")
	flags.StringSliceVarP(&opts.kinds, "kind", "k", nil, "Dataset kinds to run: int, string, mixed (default all)")
	flags.StringSliceVarP(&opts.candidates, "candidate", "c", nil, "Candidates to compare (default all, see 'bloombench candidates')")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	cmd.AddCommand(newCandidatesCommand())
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
	reports, err := bench.Run(cmd.Context(), cfg, logger)
	if werr := bench.WriteReport(cmd.OutOrStdout(), cfg, reports); werr != nil && err == nil {
		err = werr
	}
	return err
}

func (o *options) config() (bench.Config, error) {
	cfg := bench.Config{
		N:        o.items,
		Capacity: o.capacity,
		FPRate:   o.errorRate,
		Seed:     o.seed,
		Kinds:    bench.AllKinds(),
	}

	if len(o.kinds) > 0 {
		cfg.Kinds = cfg.Kinds[:0:0]
		for _, name := range o.kinds {
			kind, err := bench.ParseKind(name)
			if err != nil {
				return bench.Config{}, err
			}
			cfg.Kinds = append(cfg.Kinds, kind)
		}
	}

	candidates, err := bench.SelectCandidates(o.candidates)
	if err != nil {
		return bench.Config{}, err
	}
	cfg.Candidates = candidates

	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
