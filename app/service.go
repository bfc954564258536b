// Package app wires configuration into a runnable simulation service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/islandsim/api/results"
	_ "github.com/kilianp07/islandsim/app/plugins"
	"github.com/kilianp07/islandsim/config"
	coremetrics "github.com/kilianp07/islandsim/core/metrics"
	"github.com/kilianp07/islandsim/core/model"
	coremon "github.com/kilianp07/islandsim/core/monitoring"
	"github.com/kilianp07/islandsim/core/scenario"
	"github.com/kilianp07/islandsim/core/simulation"
	"github.com/kilianp07/islandsim/core/solver"
	corestore "github.com/kilianp07/islandsim/core/store"
	"github.com/kilianp07/islandsim/infra/logger"
	inframon "github.com/kilianp07/islandsim/infra/monitoring"
	infrastore "github.com/kilianp07/islandsim/infra/store"
	"github.com/kilianp07/islandsim/pkg/export"
	"github.com/kilianp07/islandsim/pkg/plot"
)

// Option overrides a dependency built from configuration.
type Option func(*Service)

// WithEngine uses eng instead of the configured solver.
func WithEngine(eng solver.Engine) Option { return func(s *Service) { s.eng = eng } }

// WithSink uses sink instead of the configured metrics sinks.
func WithSink(sink coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = sink } }

// WithStore uses st instead of the configured record store.
func WithStore(st corestore.Store) Option { return func(s *Service) { s.store = st } }

// Service runs scenarios sequentially on one solver session and writes the
// results directory.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	eng     solver.Engine
	sess    *solver.Session
	runner  *simulation.Runner
	sink    coremetrics.MetricsSink
	store   corestore.Store
	catalog *scenario.Catalog
	runID   string
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service"), runID: uuid.NewString()}
	for _, o := range opts {
		o(s)
	}

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	s.catalog = scenario.NewCatalog()
	if err := s.catalog.LoadFiles(cfg.Scenarios.Files...); err != nil {
		return nil, fmt.Errorf("scenarios: %w", err)
	}
	if s.eng == nil {
		if s.eng, err = solver.NewEngine(cfg.Solver); err != nil {
			return nil, fmt.Errorf("solver %s: %w", cfg.Solver.Type, err)
		}
	}
	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	if s.store == nil {
		if s.store, err = infrastore.New(cfg.Store); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	s.sess = solver.NewSession(s.eng, logger.New("solver"))
	s.runner, err = simulation.NewRunner(s.sess, cfg.Network, cfg.Dispatch,
		simulation.WithLogger(logger.New("simulation")),
		simulation.WithSink(s.sink),
		simulation.WithStore(s.store),
		simulation.WithRunID(s.runID),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RunID identifies the records written by this service.
func (s *Service) RunID() string { return s.runID }

// Catalog returns the known scenarios.
func (s *Service) Catalog() *scenario.Catalog { return s.catalog }

// Run simulates the selected scenarios one after another. names overrides
// the configured selection. Cancellation is checked between scenarios only.
// The summary of every completed scenario is written even when the run
// stops early.
func (s *Service) Run(ctx context.Context, names []string) (model.SummaryRecord, error) {
	if len(names) == 0 {
		names = s.cfg.Scenarios.Names
	}
	selected, err := s.catalog.Select(names)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.cfg.Output.ResultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("results dir: %w", err)
	}
	s.log.Infof("run %s: %d scenarios, results in %s", s.runID, len(selected), s.cfg.Output.ResultsDir)

	summary := model.SummaryRecord{}
	var runErr error
	for _, sc := range selected {
		if err := ctx.Err(); err != nil {
			s.log.Warnf("run interrupted before %s", sc.Name)
			runErr = err
			break
		}
		res, err := s.runner.RunScenario(sc)
		if err != nil {
			coremon.CaptureException(err, coremon.ScenarioTags(s.runID, sc.Name))
			if !s.cfg.ContinueOnError {
				runErr = fmt.Errorf("scenario %s: %w", sc.Name, err)
				break
			}
			s.log.Warnf("continuing after failed scenario %s", sc.Name)
			continue
		}
		summary.Add(model.NewSummary(sc, res))
		s.saveArtefacts(sc.Name, res)
	}

	path, err := export.SaveSummary(s.cfg.Output.ResultsDir, summary)
	if err != nil {
		return summary, errors.Join(runErr, fmt.Errorf("summary: %w", err))
	}
	s.log.Infof("saved %s", path)
	return summary, runErr
}

// saveArtefacts writes the optional per-scenario files. Failures are logged.
func (s *Service) saveArtefacts(name string, res *model.ScenarioResults) {
	dir := s.cfg.Output.ResultsDir
	if s.cfg.Output.PlotsEnabled() {
		paths, err := plot.SaveAll(dir, name, res)
		for _, p := range paths {
			s.log.Infof("saved %s", p)
		}
		if err != nil {
			s.log.Errorf("plots for %s: %v", name, err)
		}
	}
	if s.cfg.Output.CSV {
		p, err := export.SaveCSV(dir, name, res)
		if err != nil {
			s.log.Errorf("csv for %s: %v", name, err)
			return
		}
		s.log.Infof("saved %s", p)
	}
}

// Handler serves the results API and the Prometheus endpoint.
func (s *Service) Handler(token string) http.Handler {
	mux := http.NewServeMux()
	results.Register(mux, s.store, filepath.Join(s.cfg.Output.ResultsDir, export.SummaryFile), token)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes Handler on addr until ctx is cancelled.
func (s *Service) Serve(ctx context.Context, addr, token string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(token), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	s.log.Infof("serving results API on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the session, the store and flushing sinks.
func (s *Service) Close() error {
	var errs []error
	if s.sess != nil {
		errs = append(errs, s.sess.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
