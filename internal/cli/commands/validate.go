package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a LogTriage configuration file without running analysis.

Checks:
  - YAML syntax
  - Required fields
  - Numeric ranges (top_n, heatmap_interval, workers)
  - Suspect IP pattern validity
  - Webhook URLs and triggers
  - Log source file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", configPath)

	// Load and validate config
	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// Report what we found
	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Log sources:      %d pattern(s)\n", len(cfg.LogSources))
	fmt.Fprintf(w, "  Top N:            %d\n", cfg.TopN)
	fmt.Fprintf(w, "  Heatmap interval: %s\n", cfg.HeatmapInterval)
	fmt.Fprintf(w, "  Workers:          %d\n", cfg.Workers)
	fmt.Fprintf(w, "  Bot agents:       %s\n", strings.Join(cfg.BotAgents, ", "))
	fmt.Fprintf(w, "  Webhooks:         %d\n", len(cfg.Webhooks))

	// List suspects
	if len(cfg.Suspects) > 0 {
		fmt.Fprintf(w, "\nSuspects:\n")
		for i, s := range cfg.Suspects {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
	}

	// Check if log sources exist (warnings only)
	files, err := parser.ExpandGlobs(cfg.LogSources)
	if err != nil {
		fmt.Fprintf(w, "\nWarning: Error expanding log source patterns: %v\n", err)
		return nil
	}

	fmt.Fprintf(w, "\nLog files:\n")
	for _, f := range files {
		if err := fileReadable(f); err != nil {
			fmt.Fprintf(w, "  - %s (warning: %v)\n", f, err)
			continue
		}
		fmt.Fprintf(w, "  - %s\n", f)
	}

	return nil
}

// fileReadable reports why path cannot be loaded as a log file.
func fileReadable(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return errors.New("no such file")
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return errors.New("is a directory")
	}
	return nil
}
