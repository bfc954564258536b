package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/islandsim/core/factory"
	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/model"
)

func TestInfluxSink_RecordMinute(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	ts := time.Date(2024, 6, 1, 2, 0, 0, 0, time.UTC)
	ev := coremetrics.MinuteEvent{
		Scenario: "scenario_2_bess_only",
		Sample: model.MinuteSample{
			Minute: 120, Island: true, PVKW: 0, BatteryKW: 14.9996, SoCPct: 39.5,
			LoadKW: 15.2, State: model.StateDischarging, SetpointKW: 15,
		},
		Stable: true,
		Time:   ts,
	}
	if err := sink.RecordMinute(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("microgrid_minute").
		AddTag("scenario", "scenario_2_bess_only").
		AddTag("island", "true").
		AddTag("state", "DISCHARGING").
		AddField("minute", 120).
		AddField("pv_kw", 0.0).
		AddField("bat_kw", 15.0).
		AddField("soc_pct", 39.5).
		AddField("load_kw", 15.2).
		AddField("supply_kw", 15.0).
		AddField("setpoint_kw", 15.0).
		AddField("stable", true).
		SetTime(ts)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(body) != expected {
		t.Errorf("unexpected body:\n%s\nwant:\n%s", body, expected)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if _, ok := s.(coremetrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
	if _, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	s, err = coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*coremetrics.MultiSink)
	if !ok || len(m.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks, got %T", s)
	}
}
