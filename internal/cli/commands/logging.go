package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// LogLevelFlag is the persistent root flag that sets the diagnostic log level.
const LogLevelFlag = "log-level"

// newLogger builds the stderr diagnostic logger for cmd. Commands run
// without the root command log at warn level.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level := slog.LevelWarn
	if f := cmd.Flag(LogLevelFlag); f != nil {
		if err := level.UnmarshalText([]byte(f.Value.String())); err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", LogLevelFlag, f.Value.String(), err)
		}
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slog.New(handler), nil
}
