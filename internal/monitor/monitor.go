// Package monitor runs the fault checks that decide whether a console
// installation is healthy. Faults are data: RunCycle always returns a full
// report and never an error.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"m365console/internal/artifacts"
	"m365console/internal/common/logger"
	"m365console/internal/config"
)

// Options select what the checks expect to find.
type Options struct {
	RequiredCommands []string
	ReportSubdirs    []string
	Artifacts        []string

	// LookPath resolves commands; defaults to exec.LookPath.
	LookPath func(string) (string, error)
	Now      func() time.Time
	Logger   *slog.Logger
	// Registerer receives the check gauges; nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// OptionsFromConfig derives check options from the loaded config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequiredCommands: cfg.RequiredCommands,
		ReportSubdirs:    cfg.ReportSubdirs,
		Artifacts:        artifacts.Names(),
	}
}

// Monitor runs the check battery over one Layout.
type Monitor struct {
	layout   Layout
	opts     Options
	checks   []Check
	lookPath func(string) (string, error)
	now      func() time.Time
	log      *slog.Logger

	checkPassed *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

// New returns a Monitor with the default checks.
func New(layout Layout, opts Options) *Monitor {
	if opts.ReportSubdirs == nil {
		opts.ReportSubdirs = config.DefaultReportSubdirs
	}
	m := &Monitor{
		layout:   layout,
		opts:     opts,
		lookPath: opts.LookPath,
		now:      opts.Now,
		log:      opts.Logger,
	}
	if m.lookPath == nil {
		m.lookPath = exec.LookPath
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.checks = m.defaultChecks()

	factory := promauto.With(opts.Registerer)
	m.checkPassed = factory.NewGaugeVec(prometheus.GaugeOpts{
		Name: "console_fault_check_passed",
		Help: "1 if the fault check passed in the last cycle, 0 otherwise",
	}, []string{"check"})
	m.cycles = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "console_monitor_cycles_total",
		Help: "The total number of monitor cycles by outcome",
	}, []string{"result"})
	return m
}

// Layout returns the installation layout being monitored.
func (m *Monitor) Layout() Layout {
	return m.layout
}

// Options returns the check options.
func (m *Monitor) Options() Options {
	return m.opts
}

// RunCycle runs every check and returns all results. A failing or
// panicking check does not stop the others.
func (m *Monitor) RunCycle(ctx context.Context) FaultReport {
	report := FaultReport{StartedAt: m.now()}

	for _, c := range m.checks {
		result := m.run(ctx, c)
		report.Checks = append(report.Checks, result)

		v := 0.0
		if result.Passed {
			v = 1
		}
		m.checkPassed.WithLabelValues(result.Name).Set(v)

		if !result.Passed {
			logger.LogWarn(m.log, "Fault check failed", "check", result.Name, "message", result.Message)
		} else {
			logger.LogDebug(m.log, "Fault check passed", "check", result.Name)
		}
	}

	report.Duration = m.now().Sub(report.StartedAt)
	outcome := "healthy"
	if !report.Passed() {
		outcome = "faulty"
	}
	m.cycles.WithLabelValues(outcome).Inc()
	logger.LogInfo(m.log, "Monitor cycle complete",
		"checks", len(report.Checks), "failures", len(report.Failures()), "duration", report.Duration)
	return report
}

func (m *Monitor) run(ctx context.Context, c Check) (result FaultCheck) {
	result = FaultCheck{Name: c.Name, CheckedAt: m.now()}
	defer func() {
		if r := recover(); r != nil {
			result.Passed = false
			result.Message = fmt.Sprintf("check panicked: %v", r)
			result.Details = nil
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Message = fmt.Sprintf("check skipped: %v", err)
		return result
	}

	details, err := c.Run(ctx)
	if err != nil {
		result.Message = err.Error()
		result.Details = details
		return result
	}
	result.Passed = true
	result.Message = "ok"
	return result
}
