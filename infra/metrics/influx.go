package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/infra/logger"
)

// InfluxSink writes simulation time series to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordMinute writes one point per simulated minute.
func (s *InfluxSink) RecordMinute(ev coremetrics.MinuteEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, minutePoint(ev))
}

// RecordScenario writes the outcome of a scenario run.
func (s *InfluxSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("scenario_result").
		AddTag("scenario", ev.Scenario).
		AddTag("failed", strconv.FormatBool(ev.Failed)).
		AddField("stability_minutes", ev.StabilityMinutes).
		AddField("island_minutes", ev.IslandMinutes).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func minutePoint(ev coremetrics.MinuteEvent) *write.Point {
	smp := ev.Sample
	p := write.NewPointWithMeasurement("microgrid_minute").
		AddTag("scenario", ev.Scenario).
		AddTag("island", strconv.FormatBool(smp.Island)).
		AddTag("state", smp.State.String()).
		AddField("minute", smp.Minute).
		AddField("pv_kw", round3(smp.PVKW)).
		AddField("bat_kw", round3(smp.BatteryKW)).
		AddField("soc_pct", round3(smp.SoCPct)).
		AddField("load_kw", round3(smp.LoadKW)).
		AddField("supply_kw", round3(smp.SupplyKW())).
		AddField("setpoint_kw", round3(smp.SetpointKW)).
		AddField("stable", ev.Stable).
		SetTime(ev.Time)
	return p
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
