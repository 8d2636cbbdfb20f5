package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vemos"
	"github.com/hupe1980/vemos/classifier"
)

func newFuseCmd(g *globalFlags) *cobra.Command {
	var flags struct {
		matrices   []string
		classifier string
		name       string
	}
	cmd := &cobra.Command{
		Use:   "fuse",
		Short: "Fuse matrices with a support vector classifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(flags.matrices) < 2 {
				return errors.New("--matrices needs at least two matrices")
			}
			kernel, err := classifier.ParseKernelType(flags.classifier)
			if err != nil {
				return err
			}
			name := flags.name
			if name == "" {
				name = "fused_" + strings.Join(flags.matrices, "_")
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
			res, err := rt.eng.Fuse(ctx, vemos.FuseRequest{
				Matrices: flags.matrices,
				Kernel:   kernel,
				Name:     name,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Fused %s into %q with the %s kernel: %d pairs, %d dropped\n",
				strings.Join(flags.matrices, ", "), name, kernel, res.Pairs, res.Dropped)

			info, err := rt.save(ctx)
			if err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(out, "Saved session %q (version %d)\n", info.Name, info.Version)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&flags.matrices, "matrices", nil, "Matrices to fuse, comma separated (required)")
	f.StringVar(&flags.classifier, "classifier", "rbf", "Kernel: linear, rbf or polynomial")
	f.StringVar(&flags.name, "name", "", "Name of the fused matrix")
	_ = cmd.MarkFlagRequired("matrices")
	return cmd
}
