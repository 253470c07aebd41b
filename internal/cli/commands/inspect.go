package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/pkg/analyzer"
	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/loader"
	"github.com/ccollicutt/logtriage/pkg/output"
)

// InspectOptions holds command-line options for the inspect command.
type InspectOptions struct {
	Output    string
	IPs       []string
	BotAgents []string
	Workers   int
	Verbose   bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <log-file>",
		Short: "Break down the requests of one IP pattern",
		Long: `Break down the requests from one or more IP patterns in a single log file,
without a configuration file.

A pattern ending in x matches by prefix: 45.133.1.x matches every address
starting with 45.133.1. A pattern without x matches one address exactly.

Example:
  logtriage inspect access.log --ip 45.133.1.x
  logtriage inspect access.log --ip 35.185.0.156 --ip 45.133.1.x -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.IPs, "ip", nil, "IP pattern to inspect (can be repeated, required)")
	cmd.Flags().StringSliceVar(&opts.BotAgents, "bot-agent", nil, "User-agent substring marking a bot (default bot, spider, crawler, python-request)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "Parser goroutines")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "List every URL and rejected line")
	_ = cmd.MarkFlagRequired("ip")

	return cmd
}

func runInspect(cmd *cobra.Command, path string, opts *InspectOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	if len(opts.IPs) == 0 {
		return errors.New("at least one --ip pattern is required")
	}

	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{Verbose: opts.Verbose})
	if err != nil {
		return err
	}

	bots := dataset.NewBotMatcher(opts.BotAgents...)
	engines := make([]analyzer.Engine, 0, len(opts.IPs))
	for _, pattern := range opts.IPs {
		engine, err := analyzer.NewSuspectEngine(pattern, bots)
		if err != nil {
			return fmt.Errorf("invalid --ip: %w", err)
		}
		engines = append(engines, engine)
	}

	ds, stats := loader.New(loader.WithWorkers(opts.Workers), loader.WithLogger(logger)).Load(ctx, path)
	if stats.OpenErr != nil {
		return stats.OpenErr
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	result := &analyzer.AnalysisResult{
		Metadata: analyzer.AnalysisMetadata{
			Sources:         []string{path},
			StartTime:       time.Now(),
			RecordsAnalyzed: ds.Len(),
		},
	}
	if start, end, ok := ds.TimeSpan(); ok {
		result.Metadata.DataStart = start
		result.Metadata.DataEnd = end
	}

	for _, engine := range engines {
		if err := engine.Run(ctx, ds, result); err != nil {
			return fmt.Errorf("%s: %w", engine.Name(), err)
		}
	}
	result.Metadata.EndTime = time.Now()

	report := output.NewReport(result, stats, "")
	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}
	return nil
}
