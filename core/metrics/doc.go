// Package metrics defines the sinks that observe a simulation run. A sink
// receives one MinuteEvent per simulated minute and, when it implements
// ScenarioRecorder, one ScenarioEvent when a scenario ends. Sinks are
// created from configuration through the registry; NewMetricsSink returns a
// MultiSink automatically when several sinks are configured. Prometheus and
// InfluxDB implementations live in infra/metrics.
package metrics
