// vemos resolves records, loads score matrices and fuses them from a job file.
//
// Usage:
//
//	vemos load -c job.yaml
//	vemos stats -c job.yaml [matrix...]
//	vemos fuse -c job.yaml --matrices ssim,mse --classifier rbf --name fused
//	vemos generate -c job.yaml --type Image --metric MSE
//	vemos describe -c job.yaml [-o corrected.txt]
//	vemos session list|save|load|delete -c job.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are shared by every command.
type globalFlags struct {
	jobPath    string
	session    string
	metricsOut string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "vemos",
		Short: "Score and fuse record similarity matrices",
		Long: "vemos resolves records from a directory tree or description file,\n" +
			"loads similarity matrices, splits their scores by ground truth and\n" +
			"fuses several matrices with a support vector classifier.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
	}

	f := root.PersistentFlags()
	f.StringVarP(&g.jobPath, "config", "c", "vemos.yaml", "Job file")
	f.StringVar(&g.session, "session", "", "Session name (default: job name)")
	f.StringVar(&g.metricsOut, "metrics-out", "", "Write Prometheus metrics to this file on exit")

	root.AddCommand(
		newLoadCmd(g),
		newStatsCmd(g),
		newFuseCmd(g),
		newGenerateCmd(g),
		newDescribeCmd(g),
		newSessionCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
