package commands

import (
	"github.com/spf13/cobra"

	"github.com/okian/statscout/internal/sample"
	"github.com/okian/statscout/pkg/logger"
)

func newGenCmd() *cobra.Command {
	var cfg sample.Config

	cmd := &cobra.Command{
		Use:           "gen [--count N] [--seed S] [--k N]",
		Short:         "Prints random but plausible stat lines as JSON lines for batch.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := sample.New(cfg, logger.Nop()).WriteJSONLines(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}
	cmd.Flags().IntVar(&cfg.Count, "count", 10, "number of lines")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 0, "random seed, 0 for a fresh one")
	cmd.Flags().IntVar(&cfg.K, "k", 0, "k written on every line, 0 to leave it out")
	return cmd
}
