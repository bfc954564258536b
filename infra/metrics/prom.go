package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/islandsim/core/metrics"
)

// PromSink exposes the latest minute of each scenario as gauges and counts
// minutes per dispatch state and stability.
type PromSink struct {
	soc       *prometheus.GaugeVec
	power     *prometheus.GaugeVec
	island    *prometheus.GaugeVec
	minutes   *prometheus.CounterVec
	stable    *prometheus.CounterVec
	stability *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
}

// NewPromSink registers simulation metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	soc := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "islandsim_battery_soc_percent",
		Help: "Battery state of charge at the last simulated minute",
	}, []string{"scenario"})
	power := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "islandsim_power_kw",
		Help: "Power channels at the last simulated minute",
	}, []string{"scenario", "channel"})
	island := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "islandsim_island",
		Help: "1 when the microgrid is islanded at the last simulated minute",
	}, []string{"scenario"})
	minutes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "islandsim_minutes_total",
		Help: "Simulated minutes by battery dispatch state",
	}, []string{"scenario", "state", "island"})
	stable := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "islandsim_stable_minutes_total",
		Help: "Islanded minutes with state of charge above the reserve threshold",
	}, []string{"scenario"})
	stability := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "islandsim_scenario_stability_minutes",
		Help: "Stability minutes of the last completed run of a scenario",
	}, []string{"scenario"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "islandsim_scenario_duration_seconds",
		Help:    "Wall-clock duration of scenario runs",
		Buckets: prometheus.DefBuckets,
	}, []string{"scenario", "failed"})

	var err error
	if soc, err = register(reg, soc); err != nil {
		return nil, err
	}
	if power, err = register(reg, power); err != nil {
		return nil, err
	}
	if island, err = register(reg, island); err != nil {
		return nil, err
	}
	if minutes, err = register(reg, minutes); err != nil {
		return nil, err
	}
	if stable, err = register(reg, stable); err != nil {
		return nil, err
	}
	if stability, err = register(reg, stability); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &PromSink{
		soc:       soc,
		power:     power,
		island:    island,
		minutes:   minutes,
		stable:    stable,
		stability: stability,
		duration:  duration,
	}, nil
}

// register reuses an already registered collector of the same description.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordMinute updates the gauges and counters for one minute.
func (s *PromSink) RecordMinute(ev coremetrics.MinuteEvent) error {
	smp := ev.Sample
	s.soc.WithLabelValues(ev.Scenario).Set(smp.SoCPct)
	s.power.WithLabelValues(ev.Scenario, "pv").Set(smp.PVKW)
	s.power.WithLabelValues(ev.Scenario, "battery").Set(smp.BatteryKW)
	s.power.WithLabelValues(ev.Scenario, "load").Set(smp.LoadKW)
	s.power.WithLabelValues(ev.Scenario, "supply").Set(smp.SupplyKW())
	s.power.WithLabelValues(ev.Scenario, "setpoint").Set(smp.SetpointKW)
	islandFlag := 0.0
	if smp.Island {
		islandFlag = 1
	}
	s.island.WithLabelValues(ev.Scenario).Set(islandFlag)
	s.minutes.WithLabelValues(ev.Scenario, smp.State.String(), strconv.FormatBool(smp.Island)).Inc()
	if ev.Stable {
		s.stable.WithLabelValues(ev.Scenario).Inc()
	}
	return nil
}

// RecordScenario records the outcome of a scenario run.
func (s *PromSink) RecordScenario(ev coremetrics.ScenarioEvent) error {
	if !ev.Failed {
		s.stability.WithLabelValues(ev.Scenario).Set(float64(ev.StabilityMinutes))
	}
	s.duration.WithLabelValues(ev.Scenario, strconv.FormatBool(ev.Failed)).Observe(ev.Duration.Seconds())
	return nil
}
