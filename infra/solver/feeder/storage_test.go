package feeder

import (
	"math"
	"testing"
	"time"

	"github.com/kilianp07/islandsim/core/model"
)

func TestBattery_Limits(t *testing.T) {
	b := newBattery(StorageDef{KWRated: 10, KWhRated: 20, StoredPct: 50, ReservePct: 20, Efficiency: 1})
	b.state = model.StateDischarging
	b.kwTarget = 40
	b.step(time.Hour, true)
	if b.output != 6 {
		t.Fatalf("expected discharge limited by reserve to 6 kW, got %v", b.output)
	}
	if b.storedPct() != 20 {
		t.Fatalf("expected stored 20%%, got %v", b.storedPct())
	}

	b.state = model.StateCharging
	b.kwTarget = 40
	b.step(time.Hour, true)
	if b.output != -10 {
		t.Fatalf("expected charge limited by rating to 10 kW, got %v", b.output)
	}
	b.step(time.Hour, true)
	if b.storedPct() != 100 || b.output != -6 {
		t.Fatalf("expected full battery after 6 kW top-up, got %v%% at %v", b.storedPct(), b.output)
	}
	b.step(time.Hour, true)
	if b.output != 0 {
		t.Fatalf("full battery must not charge, got %v", b.output)
	}
}

func TestBattery_IdleAndUnenergised(t *testing.T) {
	b := newBattery(StorageDef{KWRated: 10, KWhRated: 20, StoredPct: 50})
	b.kwTarget = 5
	b.step(time.Minute, true)
	if b.output != 0 || b.storedPct() != 50 {
		t.Fatalf("idling battery changed: %v %v", b.output, b.storedPct())
	}
	b.state = model.StateDischarging
	b.step(time.Minute, false)
	if b.output != 0 || b.storedPct() != 50 {
		t.Fatalf("unenergised battery changed: %v %v", b.output, b.storedPct())
	}
}

func TestShape_InterpolatesAndWraps(t *testing.T) {
	s, err := newShape([]float64{0, 1, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	cases := map[float64]float64{0: 0, 3: 0.5, 6: 1, 21: 0.5, 24: 0, 27: 0.5}
	for h, want := range cases {
		if got := s.at(h); math.Abs(got-want) > 1e-12 {
			t.Errorf("at(%v)=%v want %v", h, got, want)
		}
	}
}
