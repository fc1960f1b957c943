package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcalabro/dhbloom/internal/bench"
)

func newCandidatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "List the filter implementations bloombench can compare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range bench.DefaultCandidates() {
				fmt.Fprintln(cmd.OutOrStdout(), c.Name)
			}
			return nil
		},
	}
}
