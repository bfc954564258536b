// Package store declares persistence of per-minute simulation records.
// Implementations live in infra/store.
package store

import (
	"context"
	"time"
)

// MinuteRecord is one simulated minute of one scenario run.
type MinuteRecord struct {
	RunID      string             `json:"run_id"`
	Scenario   string             `json:"scenario"`
	Minute     int                `json:"minute"`
	Time       time.Time          `json:"time"`
	Island     bool               `json:"island"`
	PVKW       float64            `json:"pv_kw"`
	BatteryKW  float64            `json:"bat_kw"`
	SoCPct     float64            `json:"soc_pct"`
	LoadKW     float64            `json:"load_kw"`
	SupplyKW   float64            `json:"supply_kw"`
	State      string             `json:"state"`
	SetpointKW float64            `json:"setpoint_kw"`
	Stable     bool               `json:"stable"`
	Voltages   map[string]float64 `json:"voltages,omitempty"`
}

// Query filters records. Zero fields do not filter; To is an exclusive upper
// minute bound ignored when zero.
type Query struct {
	RunID      string
	Scenario   string
	From       int
	To         int
	IslandOnly bool
}

// Match reports whether r satisfies q.
func (q Query) Match(r MinuteRecord) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Scenario != "" && r.Scenario != q.Scenario {
		return false
	}
	if r.Minute < q.From {
		return false
	}
	if q.To > 0 && r.Minute >= q.To {
		return false
	}
	if q.IslandOnly && !r.Island {
		return false
	}
	return true
}

// Store persists MinuteRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec MinuteRecord) error
	Query(ctx context.Context, q Query) ([]MinuteRecord, error)
	Close() error
}

// Nop discards records.
type Nop struct{}

func (Nop) Append(context.Context, MinuteRecord) error            { return nil }
func (Nop) Query(context.Context, Query) ([]MinuteRecord, error) { return nil, nil }
func (Nop) Close() error                                          { return nil }
