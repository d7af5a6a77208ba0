package domain

import (
	"fmt"
	"time"
)

// MetricsCorrection is a metrics_update that arrived after At accepted records
// of the exported log. Replay re-applies it at the same position.
type MetricsCorrection struct {
	At      int
	Metrics MetricsSnapshot
}

type Snapshot struct {
	SessionID   SessionID
	ExportedAt  time.Time
	Actions     []ActionRecord
	Metrics     MetricsSnapshot
	Corrections []MetricsCorrection
	// Truncated counts records a bounded log evicted before export. Replay of a
	// truncated snapshot cannot reproduce its metrics.
	Truncated int
}

func (s Snapshot) TotalActions() int {
	return len(s.Actions)
}

// Validate checks that every correction points inside the log.
func (s Snapshot) Validate() error {
	if s.Truncated < 0 {
		return fmt.Errorf("%w: negative truncated count %d", ErrInvalidSnapshot, s.Truncated)
	}
	for _, correction := range s.Corrections {
		if correction.At < 0 || correction.At > len(s.Actions) {
			return fmt.Errorf("%w: correction at %d outside a log of %d records", ErrInvalidSnapshot, correction.At, len(s.Actions))
		}
	}
	return nil
}
