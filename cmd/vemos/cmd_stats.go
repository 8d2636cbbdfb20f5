package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/vemos/matrix"
)

func newStatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [matrix...]",
		Short: "Summarize the session and the scores of its matrices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.restore(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := rt.eng.State()
			printSummary(out, state)

			names := args
			if len(names) == 0 {
				names = state.Matrices.Names()
			}
			if len(names) == 0 {
				return nil
			}
			summaries := make([]matrix.Summary, len(names))
			for i, name := range names {
				if summaries[i], err = rt.eng.Stats(name); err != nil {
					return err
				}
			}
			printStats(out, names, summaries)
			return nil
		},
	}
}
