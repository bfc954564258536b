package app

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/islandsim/config"
	coremon "github.com/kilianp07/islandsim/core/monitoring"
	"github.com/kilianp07/islandsim/core/scenario"
	"github.com/kilianp07/islandsim/core/solver"
	corestore "github.com/kilianp07/islandsim/core/store"
	"github.com/kilianp07/islandsim/infra/solver/feeder"
	"github.com/kilianp07/islandsim/test/util"
)

func testConfig(t *testing.T, minutes int) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Network.Minutes = minutes
	cfg.Output.ResultsDir = filepath.Join(t.TempDir(), "results")
	return cfg
}

// compileFailer fails the n-th Compile call.
type compileFailer struct {
	solver.Engine
	n, calls int
}

func (c *compileFailer) Compile(path string) error {
	c.calls++
	if c.calls == c.n {
		return errors.New("model missing")
	}
	return c.Engine.Compile(path)
}

func TestService_RunWritesArtefacts(t *testing.T) {
	cfg := testConfig(t, 480)
	cfg.Output.CSV = true
	cfg.Store = config.StoreConfig{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "minutes.jsonl")}
	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	summary, err := svc.Run(context.Background(), []string{scenario.BESSOnly})
	require.NoError(t, err)
	s, ok := summary[scenario.BESSOnly]
	require.True(t, ok)
	assert.True(t, s.BESSEnabled)
	assert.False(t, s.PVEnabled)
	assert.Greater(t, s.StabilityMinutes, 0)
	assert.LessOrEqual(t, s.StabilityMinutes, 80)

	for _, f := range []string{
		"summary.json",
		scenario.BESSOnly + "_powerflow.html",
		scenario.BESSOnly + "_voltage_band_soc.html",
		scenario.BESSOnly + "_timeseries.csv",
	} {
		_, err := os.Stat(filepath.Join(cfg.Output.ResultsDir, f))
		assert.NoError(t, err, f)
	}

	h := svc.Handler("")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/results?island=true&run_id="+svc.RunID(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var recs []corestore.MinuteRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &recs))
	assert.Len(t, recs, 80)
	assert.Equal(t, 400, recs[0].Minute)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), scenario.BESSOnly)
}

func TestService_AbortsOnFailureByDefault(t *testing.T) {
	cfg := testConfig(t, 30)
	cfg.Output.Plots = new(bool)
	eng := &compileFailer{Engine: feeder.New(config.DefaultSolverModel, nil), n: 2}
	svc, err := New(cfg, WithEngine(eng))
	require.NoError(t, err)
	rec := &coremon.Recorder{}
	coremon.Init(rec)
	defer coremon.Init(coremon.NopMonitor{})

	summary, err := svc.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrCompileFailed)
	assert.Len(t, summary, 1)
	assert.Contains(t, summary, scenario.DefaultNames[0])
	_, serr := os.Stat(filepath.Join(cfg.Output.ResultsDir, "summary.json"))
	assert.NoError(t, serr, "summary of completed scenarios is still written")

	captured := rec.Captured()
	require.Len(t, captured, 1)
	assert.Equal(t, scenario.DefaultNames[1], captured[0].Tags["scenario"])
	assert.Equal(t, svc.RunID(), captured[0].Tags["run_id"])
}

func TestService_ContinueOnError(t *testing.T) {
	cfg := testConfig(t, 30)
	cfg.Output.Plots = new(bool)
	cfg.ContinueOnError = true
	eng := &compileFailer{Engine: feeder.New(config.DefaultSolverModel, nil), n: 2}
	svc, err := New(cfg, WithEngine(eng))
	require.NoError(t, err)

	summary, err := svc.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, summary, 2)
	assert.NotContains(t, summary, scenario.DefaultNames[1])
}

func TestService_StopsBetweenScenariosOnCancel(t *testing.T) {
	cfg := testConfig(t, 10)
	svc, err := New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := svc.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, summary)
}

func TestService_Errors(t *testing.T) {
	cfg := testConfig(t, 10)
	svc, err := New(cfg)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), []string{"nope"})
	assert.Error(t, err)

	cfg = testConfig(t, 10)
	cfg.Solver.Type = "unknown"
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, 10)
	cfg.Scenarios.Files = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestService_Serve(t *testing.T) {
	svc, err := New(testConfig(t, 10))
	require.NoError(t, err)
	defer func() { require.NoError(t, svc.Close()) }()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx, addr, "secret") }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), util.HTTPTimeout)
	defer waitCancel()
	require.NoError(t, util.WaitForHTTP(waitCtx, "http://"+addr+"/metrics"))

	resp, err := http.Get("http://" + addr + "/api/summary")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
