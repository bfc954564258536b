package metrics

import (
	"time"

	"github.com/kilianp07/islandsim/core/model"
)

// MinuteEvent is the observation of one simulated minute.
type MinuteEvent struct {
	Scenario string
	Sample   model.MinuteSample
	Stable   bool
	// Time is the simulated wall-clock time of the minute.
	Time time.Time
}

// MetricsSink records per-minute observations.
type MetricsSink interface {
	RecordMinute(ev MinuteEvent) error
}

// ScenarioEvent summarises a finished scenario.
type ScenarioEvent struct {
	Scenario         string
	StabilityMinutes int
	IslandMinutes    int
	Duration         time.Duration
	Failed           bool
	Time             time.Time
}

// ScenarioRecorder is implemented by sinks that record scenario outcomes.
type ScenarioRecorder interface {
	RecordScenario(ev ScenarioEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordMinute(MinuteEvent) error     { return nil }
func (NopSink) RecordScenario(ScenarioEvent) error { return nil }
