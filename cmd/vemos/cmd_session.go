package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage saved sessions",
	}
	cmd.AddCommand(
		newSessionListCmd(g),
		newSessionSaveCmd(g),
		newSessionLoadCmd(g),
		newSessionDeleteCmd(g),
	)
	return cmd
}

func newSessionListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.repo == nil {
				return errNoSessionStore
			}
			infos, err := rt.eng.ListSessions(ctx)
			if err != nil {
				return err
			}
			printSessions(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

func newSessionSaveCmd(g *globalFlags) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a session under the --session name",
		Long: "Without --from the job is ingested from scratch; with --from the\n" +
			"named session is copied.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			if from != "" {
				if err := rt.eng.LoadSession(ctx, from); err != nil {
					return err
				}
			} else if err := ingest(ctx, rt, out); err != nil {
				return err
			}
			info, err := rt.save(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved session %q (version %d)\n", info.Name, info.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Copy this session")
	return cmd
}

func newSessionLoadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load [name]",
		Short: "Load a session and print its summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(args) == 1 {
				rt.session = args[0]
			}
			if err := rt.restore(ctx); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), rt.eng.State())
			return nil
		},
	}
}

func newSessionDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete name",
		Short: "Delete a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, g, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.repo == nil {
				return errNoSessionStore
			}
			if err := rt.eng.DeleteSession(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %q\n", args[0])
			return nil
		},
	}
}
