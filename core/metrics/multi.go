package metrics

// MultiSink fans out events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMinute forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordMinute(ev MinuteEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordMinute(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordScenario forwards scenario outcomes to sinks that support them.
func (m *MultiSink) RecordScenario(ev ScenarioEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ScenarioRecorder); ok {
			if err := rec.RecordScenario(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink holding a client.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
