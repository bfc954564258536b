package mqttengine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/islandsim/core/solver"
	infmqtt "github.com/kilianp07/islandsim/infra/mqtt"
	"github.com/kilianp07/islandsim/infra/solver/feeder"
	"github.com/kilianp07/islandsim/test/util"
)

func TestEngine_AgainstMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	broker, cleanup, err := util.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("mosquitto unavailable: %v", err)
	}
	defer cleanup()

	agent, err := NewAgent(Config{Connection: infmqtt.Connection{Broker: broker, ClientID: "agent"}, QoS: 1}, feeder.New("", nil), nil)
	require.NoError(t, err)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() { _ = agent.Run(runCtx); close(done) }()
	defer func() { stop(); <-done }()

	eng, err := New(Config{Connection: infmqtt.Connection{Broker: broker, ClientID: "sim"}, QoS: 1, TimeoutMS: 2000}, nil)
	require.NoError(t, err)
	defer eng.Close()

	sess := solver.NewSession(eng, nil)
	require.NoError(t, sess.Reset(feeder.BuiltinModel, solver.DailyMinuteMode))
	for i := 0; i < 5; i++ {
		require.NoError(t, sess.Solve())
	}
	require.False(t, sess.IsIslanded("vsource.dummy_1"))
	require.Equal(t, 40.0, sess.Battery("storage.mobilebat", "%stored").SoCPct)
	require.Greater(t, sess.BusVoltage("home2"), 200.0)
}
