package analyzer

import (
	"time"

	"github.com/ccollicutt/logtriage/pkg/dataset"
	"github.com/ccollicutt/logtriage/pkg/parser"
)

var baseTime = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func rec(ip, region string, offset time.Duration, status int, url, ua string) parser.LogRecord {
	return parser.LogRecord{
		IP:        ip,
		Region:    region,
		Timestamp: baseTime.Add(offset),
		Method:    "GET",
		URL:       url,
		Protocol:  "HTTP/1.1",
		Status:    status,
		Size:      100,
		Referrer:  "-",
		UserAgent: ua,
		Duration:  "10",
	}
}

// at returns a record for ip at the given offset with default fields.
func at(ip string, offset time.Duration) parser.LogRecord {
	return rec(ip, "US", offset, 200, "/", "Mozilla/5.0")
}

func countsEqual(got, want []dataset.Count) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
