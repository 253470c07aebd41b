package cli

import (
	"testing"

	"github.com/ccollicutt/logtriage/internal/cli/commands"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	if root.Use != "logtriage" {
		t.Errorf("Use = %q, want logtriage", root.Use)
	}
	if root.PersistentFlags().Lookup(commands.LogLevelFlag) == nil {
		t.Error("missing --log-level flag")
	}

	for _, name := range []string{"analyze", "inspect", "diagnose", "validate", "watch", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
