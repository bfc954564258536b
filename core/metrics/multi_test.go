package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	minutes   int
	scenarios int
	err       error
}

func (r *recordSink) RecordMinute(MinuteEvent) error {
	r.minutes++
	return r.err
}

func (r *recordSink) RecordScenario(ScenarioEvent) error {
	r.scenarios++
	return nil
}

type minuteOnly struct{ n int }

func (m *minuteOnly) RecordMinute(MinuteEvent) error {
	m.n++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &minuteOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordMinute(MinuteEvent{}); err != nil {
		t.Fatalf("record minute: %v", err)
	}
	if err := m.RecordScenario(ScenarioEvent{}); err != nil {
		t.Fatalf("record scenario: %v", err)
	}
	if s1.minutes != 1 || s2.minutes != 1 || s3.n != 1 {
		t.Fatalf("minutes not forwarded")
	}
	if s1.scenarios != 1 || s2.scenarios != 1 {
		t.Fatalf("scenarios not forwarded")
	}
}

func TestMultiSink_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	if err := NewMultiSink(s1, s2).RecordMinute(MinuteEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.minutes != 0 {
		t.Fatal("second sink must not be called after an error")
	}
}

type closingSink struct {
	minuteOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSink_Close(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(&minuteOnly{}, c).Close()
	if !c.closed {
		t.Fatal("sink not closed")
	}
}
