package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/islandsim/config"
	corestore "github.com/kilianp07/islandsim/core/store"
)

func records(run, scenario string, n int) []corestore.MinuteRecord {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]corestore.MinuteRecord, n)
	for i := range out {
		out[i] = corestore.MinuteRecord{
			RunID:    run,
			Scenario: scenario,
			Minute:   i,
			Time:     start.Add(time.Duration(i) * time.Minute),
			Island:   i%2 == 1,
			SoCPct:   40,
			LoadKW:   12.5,
			State:    "IDLING",
			Voltages: map[string]float64{"home1": 229.1},
		}
	}
	return out
}

func exercise(t *testing.T, s corestore.Store) {
	t.Helper()
	ctx := context.Background()
	for _, r := range append(records("r1", "a", 6), records("r1", "b", 3)...) {
		require.NoError(t, s.Append(ctx, r))
	}

	all, err := s.Query(ctx, corestore.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 9)

	got, err := s.Query(ctx, corestore.Query{Scenario: "a", From: 2, To: 5})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].Minute)
	assert.Equal(t, 229.1, got[0].Voltages["home1"])
	assert.True(t, got[0].Time.Equal(time.Date(2024, 1, 1, 0, 2, 0, 0, time.UTC)))

	got, err = s.Query(ctx, corestore.Query{RunID: "r1", IslandOnly: true})
	require.NoError(t, err)
	assert.Len(t, got, 4)

	got, err = s.Query(ctx, corestore.Query{RunID: "other"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJSONLStore(t *testing.T) {
	s, err := NewJSONLStore(filepath.Join(t.TempDir(), "out", "minutes.jsonl"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:minutes.db?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "minutes.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	exercise(t, s)
}

func TestRotatingJSONLStore_RotationKeepsOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minutes.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	rec := records("r", "x", 1)[0]
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	n := 2*1024*1024/len(b) + 10
	ctx := context.Background()
	for i := 0; i < n; i++ {
		rec.Minute = i
		require.NoError(t, s.Append(ctx, rec))
	}

	backups, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "minutes-*.jsonl"))
	assert.NotEmpty(t, backups, "expected rotated files")

	out, err := s.Query(ctx, corestore.Query{})
	require.NoError(t, err)
	require.Len(t, out, n)
	for i, r := range out {
		if r.Minute != i {
			t.Fatalf("record %d out of order: minute %d", i, r.Minute)
		}
	}
}

func TestNew_Backends(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		cfg  config.StoreConfig
		want string
	}{
		{config.StoreConfig{}, "store.Nop"},
		{config.StoreConfig{Backend: "jsonl", Path: filepath.Join(dir, "a.jsonl")}, "*store.JSONLStore"},
		{config.StoreConfig{Backend: "jsonl", Path: filepath.Join(dir, "b.jsonl"), MaxSizeMB: 1}, "*store.RotatingJSONLStore"},
		{config.StoreConfig{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, "*store.SQLiteStore"},
	}
	for _, c := range cases {
		s, err := New(c.cfg)
		require.NoError(t, err)
		assert.Equal(t, c.want, fmt.Sprintf("%T", s))
		require.NoError(t, s.Close())
	}
	_, err := New(config.StoreConfig{Backend: "postgres"})
	assert.Error(t, err)
	_, err = New(config.StoreConfig{Backend: "jsonl", MaxSizeMB: -1})
	assert.Error(t, err)
}
