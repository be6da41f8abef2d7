package domain

import (
	"fmt"
	"time"
)

// StatusReport describes the running bot instance.
type StatusReport struct {
	Version string
	Uptime  time.Duration
}

// NewStatusReport creates a StatusReport for the given start time.
func NewStatusReport(version string, startedAt, now time.Time) *StatusReport {
	return &StatusReport{
		Version: version,
		Uptime:  now.Sub(startedAt).Truncate(time.Second),
	}
}

// Summary formats the report for display.
func (r *StatusReport) Summary() string {
	return fmt.Sprintf("Version %s, up for %s", r.Version, r.Uptime)
}
