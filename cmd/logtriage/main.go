// LogTriage - Access Log Triage Tool
//
// LogTriage parses web access logs, skips malformed lines, and reports the
// busiest clients and per-suspect breakdowns of bot traffic.
package main

import (
	"os"

	"github.com/ccollicutt/logtriage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
