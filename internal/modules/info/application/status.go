package application

import (
	"time"

	"github.com/jukebot/jukebot/internal/modules/info/domain"
)

// StatusInteractor handles the status use case.
type StatusInteractor struct {
	version   string
	startedAt time.Time
}

// NewStatusInteractor creates a new StatusInteractor.
func NewStatusInteractor(version string, startedAt time.Time) *StatusInteractor {
	return &StatusInteractor{
		version:   version,
		startedAt: startedAt,
	}
}

// Execute builds the current status report.
func (s *StatusInteractor) Execute() *domain.StatusReport {
	return domain.NewStatusReport(s.version, s.startedAt, time.Now())
}
