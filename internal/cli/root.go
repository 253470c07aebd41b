// Package cli provides the command-line interface for LogTriage.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logtriage",
		Short: "Triage web access logs for suspicious traffic",
		Long: `LogTriage is a batch access-log analysis tool.

It parses access-log lines of the form

  <ip> <ident> <region> [<timestamp>] "<method> <url> <protocol>" <status> <size> "<referrer>" "<user_agent>" <duration>

and reports:
  - Traffic: total requests, unique IPs, and the busiest IPs above average
  - Suspects: per IP pattern, bot vs other user agents, URLs, status codes,
    timeframe and regions

Malformed lines are skipped and counted, never fatal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(commands.LogLevelFlag, "warn", "Diagnostic log level on stderr (debug|info|warn|error)")

	// Add subcommands
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
