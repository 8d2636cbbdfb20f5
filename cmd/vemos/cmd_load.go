package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vemos"
	"github.com/hupe1980/vemos/config"
	"github.com/hupe1980/vemos/distance"
	"github.com/hupe1980/vemos/matrix"
)

func newLoadCmd(g *globalFlags) *cobra.Command {
	var noSave bool
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Resolve records, load and generate matrices, then save the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if err := ingest(ctx, rt, out); err != nil {
				return err
			}
			printSummary(out, rt.eng.State())

			if noSave {
				return nil
			}
			if rt.repo == nil {
				fmt.Fprintln(out, "No session store configured; state not saved.")
				return nil
			}
			info, err := rt.save(ctx)
			if err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(out, "Saved session %q (version %d)\n", info.Name, info.Version)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not save the session")
	return cmd
}

// ingest runs the resolution, loading and generation steps of the job.
func ingest(ctx context.Context, rt *runtime, out io.Writer) error {
	job, eng := rt.job, rt.eng

	switch job.Source {
	case config.SourceDirectory:
		if err := eng.ResolveFromDirectory(ctx, job.Root, job.DataTypes, job.ResolverOptions()); err != nil {
			return fmt.Errorf("resolve %s: %w", job.Root, err)
		}
	case config.SourceDescription:
		repairs, err := eng.ResolveFromDescription(ctx, job.Description, job.DataTypes)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", job.Description, err)
		}
		for _, r := range repairs {
			fmt.Fprintf(out, "Repaired match: %s lists %s\n", r.From, r.To)
		}
		if len(repairs) > 0 {
			fmt.Fprintln(out, "Run 'vemos describe -o <file>' to write the corrected description.")
		}
	}
	if job.MatrixDirectory != "" {
		eng.SetMatrixDirectory(job.MatrixDirectory)
	}

	var (
		lists []vemos.ScoreListSource
		dense []vemos.MatrixSource
	)
	for _, m := range job.Matrices {
		switch m.Format {
		case matrix.FormatList:
			lists = append(lists, vemos.ScoreListSource{Path: m.Path, Kind: m.Kind})
		default:
			dense = append(dense, vemos.MatrixSource{Name: m.Name, Path: m.Path, Kind: m.Kind})
		}
	}
	if len(lists) > 0 {
		if err := eng.LoadScoreLists(ctx, lists); err != nil {
			return err
		}
	}
	if len(dense) > 0 {
		policy, err := job.SymmetrizePolicy()
		if err != nil {
			return err
		}
		if err := eng.LoadMatrices(ctx, dense, policy); err != nil {
			return err
		}
	}

	for _, gen := range job.Generate {
		metric, err := distance.ParseMetric(gen.Metric)
		if err != nil {
			return err
		}
		m, err := eng.Generate(ctx, vemos.GenerateRequest{
			DataType: gen.DataType,
			Metric:   metric,
			Name:     gen.Name,
		})
		if err != nil {
			return fmt.Errorf("generate %s %s: %w", gen.DataType, gen.Metric, err)
		}
		fmt.Fprintf(out, "Generated %s\n", m.Name)
	}
	return nil
}
