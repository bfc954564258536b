// Package simulation runs scenarios minute by minute against a solver
// session and accumulates their results.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/islandsim/core/dispatch"
	"github.com/kilianp07/islandsim/core/logger"
	"github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/model"
	"github.com/kilianp07/islandsim/core/solver"
	"github.com/kilianp07/islandsim/core/store"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

// WithSink sends every minute to sink.
func WithSink(s metrics.MetricsSink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithStore persists every minute to st.
func WithStore(st store.Store) Option {
	return func(r *Runner) {
		if st != nil {
			r.store = st
		}
	}
}

// WithRunID tags stored records with id.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// Runner drives scenarios through the fixed per-minute order: events, solve,
// mode, PV, dispatch, battery telemetry, stability, voltages, load. It owns
// the session exclusively and is not safe for concurrent use.
type Runner struct {
	sess  *solver.Session
	net   Network
	ctrl  *dispatch.Controller
	start time.Time
	loads []string

	log   logger.Logger
	sink  metrics.MetricsSink
	store store.Store
	runID string
}

// NewRunner validates the network and dispatch settings and returns a runner
// over sess.
func NewRunner(sess *solver.Session, net Network, dcfg dispatch.Config, opts ...Option) (*Runner, error) {
	if sess == nil {
		return nil, solver.ErrNoSession
	}
	net.SetDefaults()
	if err := net.Validate(); err != nil {
		return nil, err
	}
	dcfg.SetDefaults()
	if err := dcfg.Validate(); err != nil {
		return nil, err
	}
	start, _ := net.Start()
	r := &Runner{
		sess:  sess,
		net:   net,
		start: start,
		loads: net.LoadElements(),
		log:   logger.Nop{},
		sink:  metrics.NopSink{},
		store: store.Nop{},
	}
	for _, o := range opts {
		o(r)
	}
	r.ctrl = dispatch.NewController(dcfg, net.StorageElement, net.SoCProperty, r.log)
	return r, nil
}

// Network returns the effective network settings.
func (r *Runner) Network() Network { return r.net }

// RunScenario resets the session and simulates cfg for the configured number
// of minutes. Any solver failure aborts the scenario and no partial results
// are returned.
func (r *Runner) RunScenario(cfg model.ScenarioConfig) (*model.ScenarioResults, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	began := time.Now()
	res, err := r.run(cfg)
	ev := metrics.ScenarioEvent{
		Scenario: cfg.Name,
		Duration: time.Since(began),
		Failed:   err != nil,
		Time:     time.Now(),
	}
	if err != nil {
		r.log.Errorf("scenario %s failed: %v", cfg.Name, err)
	} else {
		ev.StabilityMinutes = res.StabilityMinutes
		ev.IslandMinutes = res.IslandMinutes()
		r.log.Infof("scenario %s finished: stability=%d min island=%d min in %s",
			cfg.Name, res.StabilityMinutes, ev.IslandMinutes, ev.Duration.Round(time.Millisecond))
	}
	if rec, ok := r.sink.(metrics.ScenarioRecorder); ok {
		if serr := rec.RecordScenario(ev); serr != nil {
			r.log.Warnf("record scenario %s: %v", cfg.Name, serr)
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) run(cfg model.ScenarioConfig) (*model.ScenarioResults, error) {
	r.log.Infof("scenario %s starting: pv_shape=%s pv=%t bess=%t events=%d",
		cfg.Name, cfg.PVShape, cfg.PVEnabled, cfg.BESSEnabled, cfg.Events.Len())
	if err := r.sess.Reset(r.net.ModelPath, solver.DailyMinuteMode); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
	}
	if err := r.setup(cfg); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
	}

	threshold := r.ctrl.Policy().Config().StopThreshold()
	res := model.NewScenarioResults(r.net.Minutes, r.net.Homes, threshold)
	prevSoC := r.net.InitialSoC
	for t := 0; t < r.net.Minutes; t++ {
		smp, err := r.step(cfg, t, prevSoC)
		if err != nil {
			return nil, fmt.Errorf("scenario %s minute %d: %w", cfg.Name, t, err)
		}
		prevSoC = smp.SoCPct
		if err := res.Append(smp); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", cfg.Name, err)
		}
		r.observe(cfg.Name, smp, model.IsStable(smp.Island, smp.SoCPct, threshold))
	}
	return res, nil
}

// setup binds the PV daily profile and its availability before minute 0.
func (r *Runner) setup(cfg model.ScenarioConfig) error {
	cmds := []model.Command{
		model.SetProperty{Element: r.net.PVElement, Property: "daily", Value: cfg.PVShape},
		model.SetEnabled{Element: r.net.PVElement, Enabled: cfg.PVEnabled},
	}
	for _, c := range cmds {
		if err := r.sess.Apply(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) step(cfg model.ScenarioConfig, t int, prevSoC float64) (model.MinuteSample, error) {
	for _, cmd := range cfg.Events.EventsFor(t) {
		r.log.Debugw("apply event", map[string]any{"scenario": cfg.Name, "minute": t, "command": cmd.Text()})
		if err := r.sess.Apply(cmd); err != nil {
			return model.MinuteSample{}, err
		}
	}
	if err := r.sess.Solve(); err != nil {
		return model.MinuteSample{}, err
	}

	island := r.sess.IsIslanded(r.net.IslandSource)
	pv := r.sess.PVPowerKW(r.net.PVElement)
	d, err := r.ctrl.Step(r.sess, island, pv, prevSoC, cfg.BESSEnabled)
	if err != nil {
		return model.MinuteSample{}, err
	}

	bat := r.sess.Battery(r.net.StorageElement, r.net.SoCProperty)
	soc := bat.SoCPct
	if soc <= 0 {
		soc = d.SoC
	}

	volts := make([]float64, len(r.net.Homes))
	for i, h := range r.net.Homes {
		volts[i] = r.sess.BusVoltage(h)
	}

	return model.MinuteSample{
		Minute:     t,
		Island:     island,
		PVKW:       pv,
		BatteryKW:  bat.KW,
		SoCPct:     soc,
		LoadKW:     r.sess.TotalLoadKW(r.loads),
		Voltages:   volts,
		State:      d.State,
		SetpointKW: d.KW,
	}, nil
}

// observe forwards the minute to the sink and store. Failures are logged and
// never abort the run.
func (r *Runner) observe(scenario string, smp model.MinuteSample, stable bool) {
	ts := r.start.Add(time.Duration(smp.Minute) * time.Minute)
	if err := r.sink.RecordMinute(metrics.MinuteEvent{Scenario: scenario, Sample: smp, Stable: stable, Time: ts}); err != nil {
		r.log.Warnf("record minute %d of %s: %v", smp.Minute, scenario, err)
	}
	volts := make(map[string]float64, len(smp.Voltages))
	for i, h := range r.net.Homes {
		volts[h] = smp.Voltages[i]
	}
	rec := store.MinuteRecord{
		RunID:      r.runID,
		Scenario:   scenario,
		Minute:     smp.Minute,
		Time:       ts,
		Island:     smp.Island,
		PVKW:       smp.PVKW,
		BatteryKW:  smp.BatteryKW,
		SoCPct:     smp.SoCPct,
		LoadKW:     smp.LoadKW,
		SupplyKW:   smp.SupplyKW(),
		State:      smp.State.String(),
		SetpointKW: smp.SetpointKW,
		Stable:     stable,
		Voltages:   volts,
	}
	if err := r.store.Append(context.Background(), rec); err != nil {
		r.log.Warnf("store minute %d of %s: %v", smp.Minute, scenario, err)
	}
}
