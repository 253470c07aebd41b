package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// accessLine formats one well-formed access-log line.
func accessLine(ip, region, ts, url string, status int, ua string) string {
	return fmt.Sprintf(`%s - %s [%s] "GET %s HTTP/1.1" %d 512 "-" "%s" 45`, ip, region, ts, url, status, ua)
}

// sampleLog has 10 records from 5 addresses. 45.133.1.11 is the only
// address above the rounded average of 2, and one line is malformed.
func sampleLog() []string {
	var lines []string
	for i := 0; i < 6; i++ {
		lines = append(lines, accessLine("45.133.1.11", "NL", fmt.Sprintf("01/02/2024:10:0%d:00", i), "/admin", 404, "python-requests/2.31"))
	}
	lines = append(lines,
		accessLine("45.133.1.12", "DE", "01/02/2024:10:10:00", "/", 200, "Mozilla/5.0"),
		accessLine("45.133.1.12", "DE", "01/02/2024:10:11:00", "/about", 200, "Mozilla/5.0"),
		"this line is not an access log line",
		accessLine("10.0.0.1", "US", "01/02/2024:11:00:00", "/", 200, "Mozilla/5.0"),
		accessLine("10.0.0.2", "US", "01/02/2024:11:30:00", "/", 200, "Mozilla/5.0"),
		accessLine("10.0.0.3", "US", "01/02/2024:12:00:00", "/", 200, "Mozilla/5.0"),
	)
	return lines
}

// writeFile writes content to name in dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// writeLog writes lines as a log file in dir.
func writeLog(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	return writeFile(t, dir, name, content)
}

// writeConfig writes a config with the given log source and extra YAML.
func writeConfig(t *testing.T, dir, source, extra string) string {
	t.Helper()
	return writeFile(t, dir, "config.yaml", "log_sources:\n  - "+source+"\n"+extra)
}

// resetExitCode restores ExitCode after a test that runs analyze.
func resetExitCode(t *testing.T) {
	t.Helper()
	old := ExitCode
	ExitCode = 0
	t.Cleanup(func() { ExitCode = old })
}
