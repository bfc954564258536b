package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/model"
	infmqtt "github.com/kilianp07/islandsim/infra/mqtt"
)

type stubToken struct{ err error }

func (stubToken) Wait() bool                     { return true }
func (stubToken) WaitTimeout(time.Duration) bool { return true }
func (stubToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t stubToken) Error() error                 { return t.err }

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type mockClient struct {
	opts       *paho.ClientOptions
	msgs       []message
	connectErr error
	publishErr error
}

func (m *mockClient) IsConnected() bool   { return true }
func (m *mockClient) Connect() paho.Token { return stubToken{err: m.connectErr} }
func (m *mockClient) Disconnect(uint)     {}
func (m *mockClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho.Token {
	if m.publishErr != nil {
		return stubToken{err: m.publishErr}
	}
	m.msgs = append(m.msgs, message{topic: topic, retained: retained, payload: payload.([]byte)})
	return stubToken{}
}

func install(t *testing.T, mc *mockClient) {
	t.Helper()
	prev := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = prev })
}

func testConfig() Config {
	return Config{Connection: infmqtt.Connection{Broker: "tcp://localhost:1883", ClientID: "tel"}, TopicPrefix: "grid/", EveryN: 2, RetainSummary: true}
}

func TestPublisher_Minutes(t *testing.T) {
	mc := &mockClient{}
	install(t, mc)
	reg := prometheus.NewRegistry()
	p, err := NewPublisher(testConfig(), reg)
	require.NoError(t, err)
	assert.Equal(t, "tel", mc.opts.ClientID)

	for m := 0; m < 4; m++ {
		require.NoError(t, p.RecordMinute(coremetrics.MinuteEvent{
			Scenario: "s2",
			Sample:   model.MinuteSample{Minute: m, Island: true, PVKW: 1, BatteryKW: 2, SoCPct: 39.5, State: model.StateDischarging, Voltages: []float64{229}},
			Stable:   true,
		}))
	}
	require.Len(t, mc.msgs, 2)
	assert.Equal(t, "grid/s2/minute", mc.msgs[1].topic)
	assert.False(t, mc.msgs[1].retained)

	var got map[string]any
	require.NoError(t, json.Unmarshal(mc.msgs[1].payload, &got))
	assert.Equal(t, 2.0, got["minute"])
	assert.Equal(t, 3.0, got["supply_kw"])
	assert.Equal(t, "DISCHARGING", got["state"])
	assert.Equal(t, true, got["stable"])
	assert.Equal(t, 2.0, testutil.ToFloat64(p.published.WithLabelValues("minute", "ok")))
}

func TestPublisher_Summary(t *testing.T) {
	mc := &mockClient{}
	install(t, mc)
	p, err := NewPublisher(testConfig(), prometheus.NewRegistry())
	require.NoError(t, err)

	require.NoError(t, p.RecordScenario(coremetrics.ScenarioEvent{Scenario: "s2", StabilityMinutes: 75, IslandMinutes: 1040, Duration: 1500 * time.Millisecond}))
	require.Len(t, mc.msgs, 1)
	assert.Equal(t, "grid/s2/summary", mc.msgs[0].topic)
	assert.True(t, mc.msgs[0].retained)
	assert.JSONEq(t, `{"stability_minutes":75,"island_minutes":1040,"duration_seconds":1.5,"failed":false,"time":"0001-01-01T00:00:00Z"}`, string(mc.msgs[0].payload))
}

func TestPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(Config{}, prometheus.NewRegistry())
	assert.Error(t, err)

	install(t, &mockClient{connectErr: errors.New("refused")})
	_, err = NewPublisher(testConfig(), prometheus.NewRegistry())
	assert.EqualError(t, err, "refused")

	mc := &mockClient{publishErr: errors.New("broken pipe")}
	install(t, mc)
	p, err := NewPublisher(testConfig(), prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Error(t, p.RecordScenario(coremetrics.ScenarioEvent{Scenario: "s"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.published.WithLabelValues("summary", "error")))
}

func TestPublisher_SharesCounterAcrossInstances(t *testing.T) {
	install(t, &mockClient{})
	reg := prometheus.NewRegistry()
	a, err := NewPublisher(testConfig(), reg)
	require.NoError(t, err)
	b, err := NewPublisher(testConfig(), reg)
	require.NoError(t, err)
	assert.Same(t, a.published, b.published)
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "islandsim/telemetry/x/minute", c.MinuteTopic("x"))
	assert.Equal(t, 1, c.EveryN)
	assert.Contains(t, c.ClientID, "islandsim-telemetry-")
	c.Broker = "tcp://x:1883"
	c.QoS = 3
	assert.Error(t, c.Validate())
}
