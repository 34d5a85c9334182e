package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/davidvella/xsort/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFlags struct {
	force bool
}

// configCmd writes a starting configuration file
var configCmd = &cobra.Command{
	Use:   "config [path]",
	Short: "Write the default configuration as YAML",
	Long: `Writes the default settings, with any XSORT_* environment overrides
applied, to a YAML file that sort --config accepts.

Example:
  xsort config xsort.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVarP(&configFlags.force, "force", "f", false, "Overwrite an existing file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !configFlags.force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check %s: %w", path, err)
		}
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	logger.Info("config written", zap.String("path", path))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
