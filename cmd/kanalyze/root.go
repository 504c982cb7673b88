package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "kanalyze",
	Short: "Product-line source code analysis infrastructure",
	Long: `kanalyze analyzes product-line source code — its variability model,
build model, and code model — either as a one-shot batch run over a source
tree or as a long-lived server that incrementally analyzes diffs sent to it
by a client.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(configCmd)
}
