package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"digital.vasic.provision/pkg/adapter"
	"digital.vasic.provision/pkg/catalog"
	"digital.vasic.provision/pkg/config"
	"digital.vasic.provision/pkg/engine"
	"digital.vasic.provision/pkg/env"
	"digital.vasic.provision/pkg/logging"
	"digital.vasic.provision/pkg/metrics"
	"digital.vasic.provision/pkg/monitor"
	"digital.vasic.provision/pkg/registry"
	"digital.vasic.provision/pkg/report"
	"digital.vasic.provision/pkg/task"
)

const (
	logFormatConsole = "console"
	logFormatJSON    = "json"
)

// historyFile is the JSON Lines log of past passes kept in the
// results directory.
const historyFile = "history.jsonl"

// exitError carries a process exit code out of a command. err
// may be nil when the code alone is the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }

func (o *globalOptions) loadConfig() (*config.File, error) {
	loader := env.NewLoader()
	if o.envFile != "" {
		if err := loader.Load(o.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(o.configPath, loader)
	if err != nil {
		return nil, err
	}
	if o.stateDir != "" {
		cfg.StateDir = o.stateDir
	}
	return cfg, nil
}

// newLogger builds the pass logger writing to w. Configured
// secrets are masked in every sink.
func (o *globalOptions) newLogger(
	w io.Writer, secrets []string,
) (logging.Logger, error) {
	level := logging.LevelInfo
	if o.verbose {
		level = logging.LevelDebug
	}

	var base logging.Logger
	switch o.logFormat {
	case logFormatConsole, "":
		if w == io.Writer(os.Stderr) {
			base = logging.NewConsoleLogger(o.verbose)
		} else {
			base = logging.NewConsoleLoggerTo(w, o.verbose, false)
		}
	case logFormatJSON:
		base = logging.NewZapLoggerTo(w, level)
	default:
		return nil, fmt.Errorf("unknown log format %q", o.logFormat)
	}

	if o.logFile != "" {
		fileLogger, err := logging.NewZapLogger(logging.LoggerConfig{
			OutputPath: o.logFile,
			Level:      logging.LevelInfo,
			Verbose:    o.verbose,
		})
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		base = logging.NewMultiLogger(base, fileLogger)
	}
	return logging.NewRedactingLogger(base, secrets...), nil
}

func (o *globalOptions) adapterFor(cfg *config.File) (adapter.Adapter, error) {
	switch {
	case o.newAdapter != nil:
		return o.newAdapter(cfg)
	case o.simulate:
		return adapter.NewMemory(), nil
	case cfg.StateDir == "":
		return nil, fmt.Errorf("%w: state_dir is empty", config.ErrInvalidConfig)
	default:
		return adapter.NewLocal(cfg.StateDir), nil
	}
}

// registry returns a fresh registry holding the checklist.
func (o *globalOptions) registry() (registry.Registry, error) {
	tasks := catalog.Workstation
	if o.tasks != nil {
		tasks = o.tasks
	}
	reg := registry.NewRegistry()
	if err := catalog.Register(reg, tasks()); err != nil {
		return nil, err
	}
	return reg, nil
}

// runPass executes one pass, renders its summary and maps the
// outcome to an exit code.
func runPass(
	cmd *cobra.Command, opts *globalOptions, mode engine.Mode, elevate bool,
) error {
	ctx := cmd.Context()

	reporter, err := report.New(opts.format)
	if err != nil {
		return err
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger, err := opts.newLogger(cmd.ErrOrStderr(), cfg.Secrets())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	sys, err := opts.adapterFor(cfg)
	if err != nil {
		return err
	}
	reg, err := opts.registry()
	if err != nil {
		return err
	}

	var passID string
	collector := monitor.NewEventCollector()
	passMetrics := metrics.NewPrometheusMetrics()
	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithMode(mode),
		engine.WithObserver(collector),
		engine.WithObserver(metrics.NewObserver(passMetrics)),
		engine.WithObserver(engine.ObserverFuncs{
			OnPassStarted: func(id string, _ engine.Mode, _ int) {
				passID = id
			},
		}),
	)

	mon := monitorSetup{
		addr:      opts.monitorAddr,
		logger:    logger,
		collector: collector,
		metrics:   passMetrics,
	}
	results, passErr := mon.execute(ctx,
		func(ctx context.Context) ([]*task.Result, error) {
			return eng.RunPass(ctx, reg, cfg.TaskConfig(), sys)
		})
	if passErr != nil && len(results) == 0 {
		return passErr
	}

	summary := report.BuildSummary(mode.String(), results)
	summary.PassID = passID
	if err := reporter.Render(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	if cfg.ResultsDir != "" {
		if err := saveResults(cfg, summary); err != nil {
			logger.Warn("save_results_failed", logging.ErrorField(err))
		}
	}
	if passErr != nil {
		return &exitError{code: report.ExitFailed, err: passErr}
	}

	code := summary.ExitCode
	if elevate && code == report.ExitElevationRequired {
		code, err = relaunchElevated(ctx, sys, logger, opts.args)
		if err != nil {
			return &exitError{code: code, err: err}
		}
	}
	if code != report.ExitSatisfied {
		return &exitError{code: code}
	}
	return nil
}

// monitorSetup describes the optional live monitor of a pass.
type monitorSetup struct {
	addr      string
	logger    logging.Logger
	collector *monitor.EventCollector
	metrics   *metrics.PrometheusMetrics
}

// execute runs pass, alongside the monitor server when addr is
// set. The address is bound before the pass starts, so a bind
// failure is returned without running anything. Once serving,
// server errors are logged and never cut the pass short. The
// server stops once the pass returns.
func (m monitorSetup) execute(
	ctx context.Context,
	pass func(context.Context) ([]*task.Result, error),
) ([]*task.Result, error) {
	if m.addr == "" {
		return pass(ctx)
	}

	srv := monitor.NewServer(m.addr, m.collector, monitor.NewDashboardData(), m.logger)
	srv.Mount("/metrics", m.metrics.Handler())
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	srvCtx, stopServer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopServer()
	var g errgroup.Group
	g.Go(func() error {
		if err := srv.Start(srvCtx); err != nil {
			m.logger.Error("monitor_failed", logging.ErrorField(err))
		}
		return nil
	})

	results, err := pass(ctx)
	stopServer()
	_ = g.Wait()
	return results, err
}

func saveResults(cfg *config.File, summary *report.Summary) error {
	if err := report.SaveSummary(summary, cfg.ResultsDir); err != nil {
		return err
	}
	return report.AppendToHistory(cfg.ResultsPath(historyFile), summary)
}

// relaunchElevated asks the adapter to rerun the command with
// administrative rights and returns the child's exit code.
func relaunchElevated(
	ctx context.Context,
	sys adapter.Adapter,
	logger logging.Logger,
	args []string,
) (int, error) {
	elevated, err := sys.IsElevated(ctx)
	if err != nil {
		return report.ExitElevationRequired, fmt.Errorf("query elevation: %w", err)
	}
	if elevated {
		return report.ExitElevationRequired, nil
	}

	childArgs := relaunchArgs(args)
	logger.Info("requesting_elevation",
		logging.LogField("args", childArgs),
	)
	err = sys.RequestElevation(ctx, childArgs)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return report.ExitSatisfied, nil
	case errors.As(err, &exitErr):
		return exitErr.ExitCode(), nil
	default:
		return report.ExitElevationRequired, err
	}
}
