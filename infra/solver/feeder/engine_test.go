package feeder

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/islandsim/core/factory"
	"github.com/kilianp07/islandsim/core/solver"
)

func compiled(t *testing.T) *Engine {
	t.Helper()
	e := New("", nil)
	require.NoError(t, e.Clear())
	require.NoError(t, e.Compile(BuiltinModel))
	require.NoError(t, e.SetMode(solver.DailyMinuteMode))
	return e
}

func voltage(e *Engine, bus string) float64 {
	if !e.SelectBus(bus) {
		return -1
	}
	return e.ReadVoltageMagnitude()
}

func TestEngine_GridTiedVoltages(t *testing.T) {
	e := compiled(t)
	require.NoError(t, e.SolveStep())
	assert.Equal(t, 230.0, voltage(e, "sourcebus"))
	for _, h := range []string{"home1", "home5", "home10"} {
		v := voltage(e, h)
		assert.Less(t, v, 230.0, h)
		assert.Greater(t, v, 220.0, h)
	}
	// Farther service drops see a lower voltage.
	assert.Less(t, voltage(e, "home5"), voltage(e, "home1"))
	assert.Equal(t, -1.0, voltage(e, "nowhere"))
}

func TestEngine_OpeningFeederDeenergisesHomes(t *testing.T) {
	e := compiled(t)
	require.NoError(t, e.Issue("edit line.sw2 enabled=no"))
	require.NoError(t, e.SolveStep())
	assert.Zero(t, voltage(e, "home3"))
	require.True(t, e.SelectElement("Load.home3"))
	assert.Equal(t, []float64{0, 0}, e.ReadPowers())

	require.NoError(t, e.Issue("edit vsource.dummy_1 enabled=yes"))
	require.NoError(t, e.Issue("edit line.mbs_s1 enabled=yes"))
	require.NoError(t, e.SolveStep())
	assert.InDelta(t, 230, voltage(e, "bessbus"), 1e-9)
	assert.Greater(t, voltage(e, "home3"), 200.0)
	require.True(t, e.SelectElement("load.home3"))
	assert.Greater(t, e.ReadPowers()[0], 0.0)
}

func TestEngine_PVFollowsShape(t *testing.T) {
	e := compiled(t)
	require.NoError(t, e.Issue("edit pvsystem.pv1 daily=pvshape1"))
	require.NoError(t, e.SolveStep())
	require.True(t, e.SelectElement("pvsystem.pv1"))
	assert.Zero(t, e.ReadPowers()[0], "no sun at midnight")

	require.NoError(t, e.SetMode(solver.ModeSpec{Mode: "daily", StepSize: time.Minute, Number: 12 * 60}))
	require.NoError(t, e.SolveStep())
	require.NoError(t, e.SetMode(solver.DailyMinuteMode))
	require.NoError(t, e.SolveStep())
	require.True(t, e.SelectElement("pvsystem.pv1"))
	noon := -e.ReadPowers()[0]
	assert.InDelta(t, 12*0.92, noon, 0.05)

	require.NoError(t, e.Issue("edit pvsystem.pv1 enabled=no"))
	require.NoError(t, e.SolveStep())
	assert.False(t, e.IsEnabled())
	assert.Zero(t, e.ReadPowers()[0])
}

func TestEngine_StorageIntegratesEnergy(t *testing.T) {
	e := compiled(t)
	stored := func() float64 {
		require.True(t, e.SelectElement("storage.mobilebat"))
		s, err := e.ReadProperty("%stored")
		require.NoError(t, err)
		v, err := strconv.ParseFloat(s, 64)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 40.0, stored())

	require.NoError(t, e.Issue("edit storage.mobilebat State=DISCHARGING kW=15"))
	for i := 0; i < 60; i++ {
		require.NoError(t, e.SolveStep())
	}
	// 15 kW for one hour at 95 % efficiency out of 100 kWh.
	assert.InDelta(t, 40-15/0.95, stored(), 1e-6)
	require.True(t, e.SelectElement("storage.mobilebat"))
	p := e.ReadPowers()
	assert.InDelta(t, -15, p[0]+p[2]+p[4], 1e-9)

	require.NoError(t, e.Issue("edit storage.mobilebat State=CHARGING kW=10"))
	require.NoError(t, e.SolveStep())
	require.True(t, e.SelectElement("storage.mobilebat"))
	p = e.ReadPowers()
	assert.InDelta(t, 10, p[0]+p[2]+p[4], 1e-9)
}

func TestEngine_StorageStopsAtReserve(t *testing.T) {
	e := compiled(t)
	require.NoError(t, e.Issue("edit storage.mobilebat %stored=20.1"))
	require.NoError(t, e.Issue("edit storage.mobilebat State=DISCHARGING kW=25"))
	for i := 0; i < 10; i++ {
		require.NoError(t, e.SolveStep())
	}
	require.True(t, e.SelectElement("storage.mobilebat"))
	s, _ := e.ReadProperty("%stored")
	v, _ := strconv.ParseFloat(s, 64)
	assert.InDelta(t, 20, v, 1e-9)
	p := e.ReadPowers()
	assert.Zero(t, p[0])
}

func TestEngine_StorageIdleWhenUnenergised(t *testing.T) {
	e := compiled(t)
	require.NoError(t, e.Issue("edit line.mbs_s2 enabled=no"))
	require.NoError(t, e.Issue("edit storage.mobilebat State=DISCHARGING kW=15"))
	require.NoError(t, e.SolveStep())
	require.True(t, e.SelectElement("storage.mobilebat"))
	assert.Zero(t, e.ReadPowers()[0])
	s, _ := e.ReadProperty("%stored")
	assert.Equal(t, "40", s)
}

func TestEngine_Commands(t *testing.T) {
	e := New("", nil)
	assert.ErrorIs(t, e.Issue("edit line.sw2 enabled=no"), ErrNotCompiled)
	assert.ErrorIs(t, e.SolveStep(), ErrNotCompiled)
	require.NoError(t, e.Issue("compile '"+BuiltinModel+"'"))
	require.NoError(t, e.Issue("set mode=daily stepsize=1m number=1"))
	require.NoError(t, e.Issue("solve"))
	assert.Error(t, e.Issue("edit line.nope enabled=no"))
	assert.Error(t, e.Issue("edit pvsystem.pv1 daily=pvshape9"))
	assert.Error(t, e.Issue("bogus"))
	assert.Error(t, e.Issue("edit line.sw2 enabled=maybe"))
	require.NoError(t, e.Issue("edit load.home1 kw=2 pf=0.9"))
	require.True(t, e.SelectElement("load.home1"))
	kw, err := e.ReadProperty("kW")
	require.NoError(t, err)
	assert.Equal(t, "2", kw)
	_, err = e.ReadProperty("missing")
	assert.Error(t, err)
	require.NoError(t, e.Issue("clear"))
	assert.False(t, e.SelectElement("load.home1"))
}

func TestEngine_ModelOverrideAndFile(t *testing.T) {
	e := New(BuiltinModel, nil)
	require.NoError(t, e.Compile("master.dss"))
	assert.True(t, e.SelectElement("vsource.dummy_1"))
	assert.False(t, e.IsEnabled())

	doc := `
name: two-bus
buses: [a, b]
vsources: [{name: grid, bus: a, pu: 1.0, enabled: true}]
lines: [{name: ab, from: a, to: b, r_ohm: 1}]
loads: [{name: l1, bus: b, kw: 2.3}]
`
	path := filepath.Join(t.TempDir(), "two.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	e = New("", nil)
	require.NoError(t, e.Compile(path))
	require.NoError(t, e.SolveStep())
	// V(230 - V) = 2300 -> V = 219.54 on the load bus.
	want := (230 + math.Sqrt(230*230-4*2300)) / 2
	assert.InDelta(t, want, voltage(e, "b"), 1e-3)
	require.True(t, e.SelectElement("vsource.grid"))
	assert.InDelta(t, -2.3*230/want, e.ReadPowers()[0], 1e-3)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("buses: [a]\nlines: [{name: x, from: a, to: z, r_ohm: 1}]\n"), 0o600))
	assert.Error(t, New("", nil).Compile(bad))
	assert.Error(t, New("", nil).Compile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestEngine_Registered(t *testing.T) {
	eng, err := solver.NewEngine(factory.ModuleConfig{Type: "feeder", Conf: map[string]any{"model": BuiltinModel}})
	require.NoError(t, err)
	sess := solver.NewSession(eng, nil)
	require.NoError(t, sess.Reset("master.dss", solver.DailyMinuteMode))
	require.NoError(t, sess.Solve())
	assert.False(t, sess.IsIslanded("vsource.dummy_1"))
	assert.Greater(t, sess.TotalLoadKW([]string{"load.home1", "load.home2"}), 0.0)
	bat := sess.Battery("storage.mobilebat", "%stored")
	assert.Equal(t, 40.0, bat.SoCPct)
}
