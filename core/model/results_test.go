package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threshold = 20.5

func TestScenarioResults_AppendAlignsChannels(t *testing.T) {
	res := NewScenarioResults(3, []string{"home1", "home2"}, threshold)
	samples := []MinuteSample{
		{Minute: 0, PVKW: 3, BatteryKW: 0, SoCPct: 40, LoadKW: 12, Voltages: []float64{230, 229}},
		{Minute: 1, Island: true, PVKW: 4, BatteryKW: 11, SoCPct: 39.5, LoadKW: 15, Voltages: []float64{228, 227}},
		{Minute: 2, Island: true, PVKW: 0, BatteryKW: 0, SoCPct: 20.5, LoadKW: 15, Voltages: []float64{0, 0}},
	}
	for _, s := range samples {
		require.NoError(t, res.Append(s))
	}
	require.NoError(t, res.Complete())
	assert.Equal(t, []int{0, 1, 1}, res.IslandFlag)
	assert.Equal(t, []float64{3, 15, 0}, res.SupplyKW)
	assert.Equal(t, 1, res.StabilityMinutes, "soc exactly at threshold is not stable")
	assert.Equal(t, 2, res.IslandMinutes())
	assert.Equal(t, []float64{229, 227, 0}, res.Voltages["home2"])

	back := res.Sample(1)
	assert.True(t, back.Island)
	assert.Equal(t, []float64{228, 227}, back.Voltages)
}

func TestScenarioResults_AppendRejectsMisuse(t *testing.T) {
	res := NewScenarioResults(1, []string{"home1"}, threshold)
	if err := res.Append(MinuteSample{Minute: 1, Voltages: []float64{1}}); err == nil {
		t.Fatal("expected out-of-order error")
	}
	if err := res.Append(MinuteSample{Minute: 0}); err == nil {
		t.Fatal("expected voltage length error")
	}
	require.NoError(t, res.Append(MinuteSample{Minute: 0, Voltages: []float64{1}}))
	if err := res.Append(MinuteSample{Minute: 1, Voltages: []float64{1}}); err == nil {
		t.Fatal("expected overflow error")
	}
	partial := NewScenarioResults(2, nil, threshold)
	require.NoError(t, partial.Append(MinuteSample{Minute: 0}))
	if err := partial.Complete(); err == nil {
		t.Fatal("expected incomplete error")
	}
}

// Supply must never go negative and must equal pv+bat otherwise.
func TestSupplyDerivation(t *testing.T) {
	for _, c := range []struct{ pv, bat, want float64 }{
		{0, 0, 0}, {4, 11, 15}, {-3, 1, 0}, {2.5, 0, 2.5},
	} {
		s := MinuteSample{PVKW: c.pv, BatteryKW: c.bat}
		if got := s.SupplyKW(); got != c.want {
			t.Errorf("supply(%v,%v)=%v want %v", c.pv, c.bat, got, c.want)
		}
	}
}

// Replays a synthetic (island, soc) sequence and compares the counter with a
// reference tally.
func TestStabilityCounterMatchesReference(t *testing.T) {
	seq := []struct {
		island bool
		soc    float64
	}{
		{false, 90}, {true, 90}, {true, 20.6}, {true, 20.5}, {true, 20.4},
		{false, 50}, {true, 0}, {true, 21}, {true, math.Nextafter(threshold, 100)},
	}
	res := NewScenarioResults(len(seq), nil, threshold)
	want := 0
	for i, s := range seq {
		require.NoError(t, res.Append(MinuteSample{Minute: i, Island: s.island, SoCPct: s.soc}))
		if s.island && s.soc > threshold {
			want++
		}
	}
	assert.Equal(t, want, res.StabilityMinutes)
	assert.Equal(t, 4, res.StabilityMinutes)
}

func TestVoltageBand(t *testing.T) {
	res := NewScenarioResults(2, []string{"a", "b", "c"}, threshold)
	require.NoError(t, res.Append(MinuteSample{Minute: 0, Voltages: []float64{230, 226, 228}}))
	require.NoError(t, res.Append(MinuteSample{Minute: 1, Voltages: []float64{0, 0, 0}}))
	lo, hi, mean := res.VoltageBand()
	assert.Equal(t, []float64{226, 0}, lo)
	assert.Equal(t, []float64{230, 0}, hi)
	assert.InDeltaSlice(t, []float64{228, 0}, mean, 1e-9)

	empty := NewScenarioResults(1, nil, threshold)
	lo, hi, mean = empty.VoltageBand()
	assert.Nil(t, lo)
	assert.Nil(t, hi)
	assert.Nil(t, mean)
}

func TestSummaryRecordShape(t *testing.T) {
	cfg := ScenarioConfig{Name: "scenario_2_bess_only", Description: "d", PVShape: "pvshape2", BESSEnabled: true}
	res := NewScenarioResults(0, nil, threshold)
	res.StabilityMinutes = 42
	rec := SummaryRecord{}
	rec.Add(NewSummary(cfg, res))
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scenario_2_bess_only":{"description":"d","pv_shape":"pvshape2","pv_enabled":false,"bess_enabled":true,"stability_minutes":42}}`, string(b))
}
