// Package main provides the wordstats command line tool: it downloads PubMed
// abstracts and computes per-year word statistics over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the global flags.
type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "wordstats",
		Short: "Per-year word statistics over PubMed abstracts",
		Long: `wordstats harvests PubMed records matching a query, month by month, into an
article store, and computes per-year word frequency tables over their abstracts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Config file (YAML); defaults to ./config.yaml when present")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(downloadCmd(opts))
	rootCmd.AddCommand(analyzeCmd(opts))
	rootCmd.AddCommand(migrateCmd(opts))

	return rootCmd
}
