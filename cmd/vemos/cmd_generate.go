package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vemos"
	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/matrix"
)

func newGenerateCmd(g *globalFlags) *cobra.Command {
	var flags struct {
		dataType   string
		metric     string
		name       string
		symmetrize string
	}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compute a matrix from the records' files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metric, err := distance.ParseMetric(flags.metric)
			if err != nil {
				return err
			}
			strategy, err := matrix.ParseStrategy(flags.symmetrize)
			if err != nil {
				return err
			}

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
			n := rt.eng.Records().Len()
			m, err := rt.eng.Generate(ctx, vemos.GenerateRequest{
				DataType:   flags.dataType,
				Metric:     metric,
				Name:       flags.name,
				Symmetrize: matrix.FixedPolicy(strategy),
				Progress: func(i int) {
					if (i+1)%100 == 0 {
						fmt.Fprintf(cmd.ErrOrStderr(), "row %d/%d\n", i+1, n)
					}
				},
			})
			if err != nil {
				return err
			}
			sum, err := rt.eng.Stats(m.Name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Generated %s (%s, %d scores, mean %s)\n", m.Name, m.Kind, sum.Count, formatScore(sum.Mean))

			info, err := rt.save(ctx)
			if err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(out, "Saved session %q (version %d)\n", info.Name, info.Version)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.dataType, "type", "", "Data type of the compared files (required)")
	f.StringVar(&flags.metric, "metric", "SSIM", "Metric: Euclidean, Hamming, MSE, NRMSE or SSIM")
	f.StringVar(&flags.name, "name", "", "Matrix name (default <type>_<metric>)")
	f.StringVar(&flags.symmetrize, "symmetrize", "mean", "Strategy for asymmetric results: max, min, mean, ij or ji")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
