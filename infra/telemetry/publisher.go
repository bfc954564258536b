// Package telemetry publishes simulated minutes and scenario outcomes to an
// MQTT broker so dashboards can follow a run live.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/infra/logger"
	infmqtt "github.com/kilianp07/islandsim/infra/mqtt"
)

// Config is the "conf" block of the mqtt metrics sink.
type Config struct {
	infmqtt.Connection `json:",squash"`
	TopicPrefix        string `json:"topic_prefix"`
	QoS                byte   `json:"qos"`
	// RetainSummary keeps the last scenario outcome on the broker.
	RetainSummary bool `json:"retain_summary"`
	// EveryN publishes one minute out of N. Scenario outcomes are always sent.
	EveryN int `json:"every_n"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "islandsim-telemetry-" + uuid.NewString()[:8]
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "islandsim/telemetry"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.EveryN <= 0 {
		c.EveryN = 1
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if err := c.Connection.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if c.QoS > 2 {
		return fmt.Errorf("telemetry: invalid qos %d", c.QoS)
	}
	return nil
}

// MinuteTopic is where the minutes of scenario are published.
func (c Config) MinuteTopic(scenario string) string {
	return c.TopicPrefix + "/" + scenario + "/minute"
}

// SummaryTopic is where the outcome of scenario is published.
func (c Config) SummaryTopic(scenario string) string {
	return c.TopicPrefix + "/" + scenario + "/summary"
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type minutePayload struct {
	Minute     int       `json:"minute"`
	Time       time.Time `json:"time"`
	Island     bool      `json:"island"`
	Stable     bool      `json:"stable"`
	PVKW       float64   `json:"pv_kw"`
	BatteryKW  float64   `json:"bat_kw"`
	SoCPct     float64   `json:"soc_pct"`
	LoadKW     float64   `json:"load_kw"`
	SupplyKW   float64   `json:"supply_kw"`
	State      string    `json:"state"`
	SetpointKW float64   `json:"setpoint_kw"`
	Voltages   []float64 `json:"voltages,omitempty"`
}

type summaryPayload struct {
	StabilityMinutes int       `json:"stability_minutes"`
	IslandMinutes    int       `json:"island_minutes"`
	DurationSeconds  float64   `json:"duration_seconds"`
	Failed           bool      `json:"failed"`
	Time             time.Time `json:"time"`
}

// Publisher implements coremetrics.MetricsSink over MQTT.
type Publisher struct {
	cli pahoClient
	cfg Config
	log logger.Logger

	published *prometheus.CounterVec
}

var (
	_ coremetrics.MetricsSink      = (*Publisher)(nil)
	_ coremetrics.ScenarioRecorder = (*Publisher)(nil)
)

// NewPublisher connects to the broker. Publish counters are registered on
// reg, or on the default registerer when reg is nil.
func NewPublisher(cfg Config, reg prometheus.Registerer) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "islandsim_telemetry_published_total",
		Help: "Telemetry messages published to MQTT by kind and result",
	}, []string{"kind", "result"})
	if err := reg.Register(published); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		published = existing
	}

	opts, err := infmqtt.NewClientOptions(cfg.Connection)
	if err != nil {
		return nil, err
	}
	p := &Publisher{cfg: cfg, log: logger.New("telemetry"), published: published}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		p.log.Errorf("connection lost: %v", err)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = cli
	return p, nil
}

// RecordMinute publishes one minute, honouring EveryN.
func (p *Publisher) RecordMinute(ev coremetrics.MinuteEvent) error {
	smp := ev.Sample
	if smp.Minute%p.cfg.EveryN != 0 {
		return nil
	}
	return p.publish("minute", p.cfg.MinuteTopic(ev.Scenario), false, minutePayload{
		Minute:     smp.Minute,
		Time:       ev.Time,
		Island:     smp.Island,
		Stable:     ev.Stable,
		PVKW:       smp.PVKW,
		BatteryKW:  smp.BatteryKW,
		SoCPct:     smp.SoCPct,
		LoadKW:     smp.LoadKW,
		SupplyKW:   smp.SupplyKW(),
		State:      smp.State.String(),
		SetpointKW: smp.SetpointKW,
		Voltages:   smp.Voltages,
	})
}

// RecordScenario publishes the outcome of a scenario run.
func (p *Publisher) RecordScenario(ev coremetrics.ScenarioEvent) error {
	return p.publish("summary", p.cfg.SummaryTopic(ev.Scenario), p.cfg.RetainSummary, summaryPayload{
		StabilityMinutes: ev.StabilityMinutes,
		IslandMinutes:    ev.IslandMinutes,
		DurationSeconds:  ev.Duration.Seconds(),
		Failed:           ev.Failed,
		Time:             ev.Time,
	})
}

func (p *Publisher) publish(kind, topic string, retain bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.cli.Publish(topic, p.cfg.QoS, retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		p.published.WithLabelValues(kind, "error").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.published.WithLabelValues(kind, "ok").Inc()
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
