package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kanalyze-tools/kanalyze/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold kanalyze configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init <config.yaml>",
	Short: "Write a starter config file with placeholder values",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	raw, err := config.Example()
	if err != nil {
		return fmt.Errorf("rendering example config: %w", err)
	}
	if err := os.WriteFile(args[0], raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote starter config to %s\n", args[0])
	return nil
}
