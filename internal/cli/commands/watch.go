package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ccollicutt/logtriage/pkg/config"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

// DefaultDebounce is how long watch waits after the last change before
// re-running the analysis.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	AnalyzeOptions
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <config-file>",
		Short: "Re-run the analysis whenever a log source changes",
		Long: `Run the analysis once, then again every time a log file matching one of
the configured log_sources is written or created.

Every run is a full batch analysis of all sources. Runs never overlap:
changes that arrive during a run trigger one more run after it finishes.
With -o json each run prints a single-line JSON document. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringSliceVar(&opts.IPs, "ip", nil, "Suspect IP pattern to break down (can be repeated)")
	cmd.Flags().IntVar(&opts.Top, "top", 0, "Number of busiest IPs to consider (overrides top_n)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "Parser goroutines per file (overrides workers)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show heatmap, rejected lines and all URLs")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", DefaultDebounce, "Quiet period after a change before re-running")

	return cmd
}

func runWatch(cmd *cobra.Command, configPath string, opts *WatchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Create new watcher.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(cfg.LogSources)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		logger.Debug("watching directory", "dir", dir)
	}

	opts.Compact = true
	w := cmd.OutOrStdout()
	run := func() {
		if _, err := runOnce(ctx, cfg, configPath, &opts.AnalyzeOptions, w, logger); err != nil && ctx.Err() == nil {
			logger.Error("analysis failed", "error", err)
		}
	}

	run()
	watchLoop(ctx, watcher.Events, watcher.Errors, sourceMatcher(cfg.LogSources), opts.Debounce, run, logger)
	return nil
}

// watchLoop calls run once per burst of relevant events, after debounce of
// quiet. run executes on the loop goroutine, so runs never overlap. It
// returns when ctx is done or either channel is closed.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, relevant func(string) bool, debounce time.Duration, run func(), logger *slog.Logger) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !relevant(event.Name) {
				continue
			}
			logger.Debug("log source changed", "file", event.Name, "op", event.Op.String())
			pending = true
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			logger.Info("re-running analysis")
			run()
		}
	}
}

// watchDirs returns the directories holding the configured sources. Globs
// are watched at their directory so newly created files are seen.
func watchDirs(sources []string) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, src := range sources {
		dir := filepath.Dir(src)
		if !strings.ContainsAny(dir, "*?[") {
			add(dir)
			continue
		}
		// Wildcards in the directory part: watch every matching directory.
		files, err := parser.ExpandGlobs([]string{src})
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			add(filepath.Dir(f))
		}
	}

	if len(dirs) == 0 {
		return nil, fmt.Errorf("no directories to watch for %v", sources)
	}
	return dirs, nil
}

// sourceMatcher reports whether a changed path belongs to one of sources.
func sourceMatcher(sources []string) func(string) bool {
	patterns := make([]string, len(sources))
	for i, src := range sources {
		patterns[i] = filepath.Clean(src)
	}
	return func(name string) bool {
		name = filepath.Clean(name)
		for _, p := range patterns {
			if p == name {
				return true
			}
			if ok, _ := filepath.Match(p, name); ok {
				return true
			}
		}
		return false
	}
}
