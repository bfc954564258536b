package scenarios

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/islandsim/config"
	"github.com/kilianp07/islandsim/core/simulation"
	"github.com/kilianp07/islandsim/core/solver"
	"github.com/kilianp07/islandsim/infra/logger"
	"github.com/kilianp07/islandsim/infra/metrics"
	"github.com/kilianp07/islandsim/infra/solver/feeder"
)

func RunCase(t *testing.T, c *Case) {
	t.Helper()
	sc, err := c.Config()
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	cfg := config.Default()
	if c.InitialSoC > 0 {
		cfg.Network.InitialSoC = c.InitialSoC
	}
	sess := solver.NewSession(feeder.New(feeder.BuiltinModel, logger.NopLogger{}), logger.NopLogger{})
	runner, err := simulation.NewRunner(sess, cfg.Network, cfg.Dispatch,
		simulation.WithLogger(logger.NopLogger{}),
		simulation.WithSink(sink),
	)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}

	res, err := runner.RunScenario(sc)
	if err != nil {
		t.Fatalf("run %s: %v", sc.Name, err)
	}
	if got := res.IslandMinutes(); got != c.Expected.IslandMinutes {
		t.Errorf("case %s expected %d island minutes, got %d", c.Name, c.Expected.IslandMinutes, got)
	}
	if s := res.StabilityMinutes; s < c.Expected.StabilityMin || s > c.Expected.StabilityMax {
		t.Errorf("case %s expected stability in [%d, %d], got %d",
			c.Name, c.Expected.StabilityMin, c.Expected.StabilityMax, s)
	}
	if res.StabilityMinutes > res.IslandMinutes() {
		t.Errorf("case %s stability %d exceeds island minutes %d", c.Name, res.StabilityMinutes, res.IslandMinutes())
	}
	n, err := testutil.GatherAndCount(reg, "islandsim_scenario_stability_minutes")
	if err != nil || n != 1 {
		t.Errorf("case %s expected one stability gauge, got %d (%v)", c.Name, n, err)
	}
}
