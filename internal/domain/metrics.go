package domain

import "math"

type MetricsSnapshot struct {
	TotalActions     int64
	SuccessRate      float64
	AvgExecutionTime float64
	ActiveAgents     int
}

// Apply folds one accepted record into the running metrics in O(1).
//
// SuccessRate is a running weighted average over all records. AvgExecutionTime
// is a two-term average with the previous value, including the first sample,
// so it is not an arithmetic mean. ActiveAgents is left untouched: only
// metrics_update events from the source may change it.
func (m MetricsSnapshot) Apply(record ActionRecord) MetricsSnapshot {
	previous := m.TotalActions
	m.TotalActions = previous + 1

	contribution := 0.0
	if record.Success {
		contribution = 100
	}
	m.SuccessRate = (m.SuccessRate*float64(previous) + contribution) / float64(m.TotalActions)

	if record.ExecutionTime != nil {
		m.AvgExecutionTime = (m.AvgExecutionTime + *record.ExecutionTime) / 2
	}

	return m
}

func (m MetricsSnapshot) IsZero() bool {
	return m == MetricsSnapshot{}
}

// RoundedSuccessRate rounds to two decimals for display.
func (m MetricsSnapshot) RoundedSuccessRate() float64 {
	return math.Round(m.SuccessRate*100) / 100
}
