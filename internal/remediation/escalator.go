// Package remediation drives the self-healing loop: each cycle runs the
// fault monitor, picks a repair tier from the number of consecutive failed
// cycles, repairs, and re-checks. Escalation is an explicit state machine
// (Healthy, Repairing(tier), Exhausted) with a pure tier selection function.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"m365console/internal/common/logger"
	"m365console/internal/monitor"
)

// ErrExhausted is returned in single-shot mode when the repair attempt
// budget is spent and faults remain.
var ErrExhausted = errors.New("repair attempts exhausted")

// Defaults for Options.
const (
	DefaultMaxRepairAttempts  = 7
	DefaultMonitoringInterval = 60 * time.Second
)

// AuditColumns are the audit log columns written for each repair attempt.
var AuditColumns = []string{"Tier", "Forced", "Outcome", "ConsecutiveFailures", "TotalAttempts", "FailingChecks", "Errors"}

// Monitor produces fault reports.
type Monitor interface {
	RunCycle(ctx context.Context) monitor.FaultReport
}

// Options configure an Escalator.
type Options struct {
	Thresholds         Thresholds
	MaxRepairAttempts  int
	MonitoringInterval time.Duration

	Processes  ProcessController
	Store      *SnapshotStore
	Audit      logger.ActionLogger
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Now        func() time.Time
	// Sleep waits between daemon cycles. The default returns early on
	// ctx cancellation or Wake.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RepairOutcome is the result of one tier execution.
type RepairOutcome struct {
	Tier    Tier
	Forced  bool
	Success bool
	Before  monitor.FaultReport
	After   monitor.FaultReport
	Errors  []error
}

// CycleResult is the result of one monitor, decide, repair pass.
type CycleResult struct {
	Report monitor.FaultReport
	Repair *RepairOutcome
	State  State
}

// Escalator owns the RepairSession and runs the repair loop.
type Escalator struct {
	mon     Monitor
	fixer   *Fixer
	opts    Options
	log     *slog.Logger
	metrics *metrics
	wake    chan struct{}

	mu      sync.Mutex
	session RepairSession
}

// New returns an Escalator in the Healthy state.
func New(mon Monitor, fixer *Fixer, opts Options) *Escalator {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds
	}
	if opts.MaxRepairAttempts <= 0 {
		opts.MaxRepairAttempts = DefaultMaxRepairAttempts
	}
	if opts.MonitoringInterval <= 0 {
		opts.MonitoringInterval = DefaultMonitoringInterval
	}
	if opts.Processes == nil {
		opts.Processes = noProcesses{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := &Escalator{
		mon:     mon,
		fixer:   fixer,
		opts:    opts,
		log:     opts.Logger,
		metrics: newMetrics(opts.Registerer),
		wake:    make(chan struct{}, 1),
		session: RepairSession{
			State:             StateHealthy,
			MaxRepairAttempts: opts.MaxRepairAttempts,
		},
	}
	e.metrics.observe(e.session)
	return e
}

// Snapshot returns a copy of the current RepairSession.
func (e *Escalator) Snapshot() RepairSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.clone()
}

// Wake cuts the current daemon sleep short, e.g. after a config change.
func (e *Escalator) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// RunMonitorCycle runs the fault monitor once. A fully passing report
// resets consecutive failures and returns the session to Healthy.
func (e *Escalator) RunMonitorCycle(ctx context.Context) monitor.FaultReport {
	report := e.mon.RunCycle(ctx)

	e.mu.Lock()
	e.session.LastReport = &report
	if report.Passed() {
		if e.session.ConsecutiveFailures > 0 || e.session.State != StateHealthy {
			logger.LogInfo(e.log, "All fault checks pass, escalation reset",
				"previousConsecutiveFailures", e.session.ConsecutiveFailures)
		}
		e.session.ConsecutiveFailures = 0
		e.session.State = StateHealthy
		e.session.Tier = TierNone
	}
	e.session.UpdatedAt = e.opts.Now()
	e.mu.Unlock()

	return report
}

// RunCycle performs one Monitor, Decide, Repair pass.
func (e *Escalator) RunCycle(ctx context.Context) CycleResult {
	report := e.RunMonitorCycle(ctx)
	if report.Passed() {
		e.persist()
		return CycleResult{Report: report, State: StateHealthy}
	}
	// Checks skipped by cancellation are not faults worth a repair.
	if ctx.Err() != nil {
		return CycleResult{Report: report, State: e.Snapshot().State}
	}

	e.mu.Lock()
	if e.session.TotalAttempts >= e.opts.MaxRepairAttempts {
		e.session.State = StateExhausted
	}
	state := e.session.State
	tier := SelectTier(e.session.ConsecutiveFailures, e.opts.Thresholds)
	e.mu.Unlock()

	if state == StateExhausted {
		logger.LogError(e.log, "Faults remain and repair attempts are exhausted",
			"failing", report.FailedNames(), "maxRepairAttempts", e.opts.MaxRepairAttempts)
		e.persist()
		return CycleResult{Report: report, State: StateExhausted}
	}

	outcome := e.repair(ctx, tier, report, false)
	return CycleResult{Report: report, Repair: &outcome, State: e.Snapshot().State}
}

// RunRemediation forces tier regardless of the escalation state and
// applies the same bookkeeping as an automatic repair.
func (e *Escalator) RunRemediation(ctx context.Context, tier Tier) RepairOutcome {
	before := e.RunMonitorCycle(ctx)
	return e.repair(ctx, tier, before, true)
}

func (e *Escalator) repair(ctx context.Context, tier Tier, before monitor.FaultReport, forced bool) RepairOutcome {
	e.mu.Lock()
	prevState, prevTier := e.session.State, e.session.Tier
	e.session.State = StateRepairing
	e.session.Tier = tier
	cf := e.session.ConsecutiveFailures
	snapshot := e.session.clone()
	e.mu.Unlock()
	e.metrics.observe(snapshot)

	logger.LogWarn(e.log, "Starting repair",
		"tier", tier.String(), "forced", forced, "consecutiveFailures", cf, "failing", before.FailedNames())

	repairErrs := e.execute(ctx, tier, before)
	for _, err := range repairErrs {
		logger.LogWarn(e.log, "Repair step failed", "tier", tier.String(), "error", err)
	}

	after := e.mon.RunCycle(ctx)
	outcome := RepairOutcome{
		Tier:    tier,
		Forced:  forced,
		Success: after.Passed(),
		Before:  before,
		After:   after,
		Errors:  repairErrs,
	}

	// An interrupted repair is not an attempt: counters and history stay put.
	if err := ctx.Err(); err != nil {
		outcome.Success = false
		outcome.Errors = append(outcome.Errors, err)
		e.mu.Lock()
		e.session.State = prevState
		e.session.Tier = prevTier
		snapshot = e.session.clone()
		e.mu.Unlock()
		e.metrics.observe(snapshot)
		logger.LogWarn(e.log, "Repair interrupted", "tier", tier.String(), "error", err)
		return outcome
	}

	e.mu.Lock()
	attempt := RepairAttempt{
		Tier:          tier,
		Timestamp:     e.opts.Now(),
		Success:       outcome.Success,
		Forced:        forced,
		FailingChecks: before.FailedNames(),
		Errors:        errorStrings(repairErrs),
	}
	e.session.record(attempt)
	e.session.LastReport = &after
	if outcome.Success {
		e.session.ConsecutiveFailures = 0
		e.session.State = StateHealthy
		e.session.Tier = TierNone
	} else {
		e.session.ConsecutiveFailures++
		e.session.TotalAttempts++
		if e.session.TotalAttempts >= e.opts.MaxRepairAttempts {
			e.session.State = StateExhausted
		}
	}
	e.session.UpdatedAt = e.opts.Now()
	snapshot = e.session.clone()
	e.mu.Unlock()

	result := "failure"
	if outcome.Success {
		result = "success"
		logger.LogInfo(e.log, "Repair succeeded", "tier", tier.String())
	} else {
		logger.LogWarn(e.log, "Repair did not clear all faults",
			"tier", tier.String(), "remaining", after.FailedNames(),
			"consecutiveFailures", snapshot.ConsecutiveFailures, "totalAttempts", snapshot.TotalAttempts)
	}
	e.metrics.repairs.WithLabelValues(tier.String(), result).Inc()
	e.metrics.observe(snapshot)
	e.audit(attempt, snapshot)
	e.persist()
	return outcome
}

func (e *Escalator) execute(ctx context.Context, tier Tier, report monitor.FaultReport) []error {
	var errs []error
	switch tier {
	case TierQuick:
		errs = e.fixer.FixTargeted(ctx, report)

	case TierStandard:
		if err := e.opts.Processes.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop managed processes: %w", err))
		}
		errs = append(errs, e.fixer.FixTargeted(ctx, report)...)
		if err := e.opts.Processes.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("start managed processes: %w", err))
		}

	case TierDeep:
		if err := e.opts.Processes.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop managed processes: %w", err))
		}
		if _, err := e.fixer.BackupTree(); err != nil {
			errs = append(errs, fmt.Errorf("full backup: %w", err))
		}
		if _, err := e.fixer.RegenerateArtifacts(); err != nil {
			errs = append(errs, fmt.Errorf("regenerate artifacts: %w", err))
		}
		errs = append(errs, e.fixer.FixAll(ctx)...)
		if err := e.opts.Processes.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("start managed processes: %w", err))
		}

	default:
		errs = append(errs, fmt.Errorf("unknown tier %d", tier))
	}
	return errs
}

// Run is the daemon loop. It sleeps MonitoringInterval between cycles.
// When attempts are exhausted it sleeps, resets the attempt budget and
// carries on at the same escalation level. It returns when ctx is done.
func (e *Escalator) Run(ctx context.Context) error {
	logger.LogInfo(e.log, "Starting monitoring loop",
		"interval", e.opts.MonitoringInterval, "maxRepairAttempts", e.opts.MaxRepairAttempts)

	for {
		result := e.RunCycle(ctx)
		if ctx.Err() != nil {
			logger.LogInfo(e.log, "Monitoring loop stopped")
			return nil
		}

		if result.State == StateExhausted {
			logger.LogError(e.log, "Repair attempts exhausted, pausing before resuming",
				"pause", e.opts.MonitoringInterval)
		}
		if err := e.sleep(ctx, e.opts.MonitoringInterval); err != nil {
			logger.LogInfo(e.log, "Monitoring loop stopped")
			return nil
		}
		if result.State == StateExhausted {
			e.resetAttempts()
		}
	}
}

// RunOnce repairs until the installation is healthy or the attempt budget
// is spent, without sleeping. It returns ErrExhausted when faults remain.
func (e *Escalator) RunOnce(ctx context.Context) error {
	for {
		result := e.RunCycle(ctx)
		switch {
		case result.State == StateHealthy:
			return nil
		case result.State == StateExhausted:
			return fmt.Errorf("%w: failing checks %s", ErrExhausted, strings.Join(e.Snapshot().lastFailing(), ", "))
		case ctx.Err() != nil:
			return ctx.Err()
		}
	}
}

func (e *Escalator) resetAttempts() {
	e.mu.Lock()
	e.session.TotalAttempts = 0
	if e.session.State == StateExhausted {
		e.session.State = StateRepairing
	}
	e.session.UpdatedAt = e.opts.Now()
	snapshot := e.session.clone()
	e.mu.Unlock()

	logger.LogInfo(e.log, "Repair attempt budget reset",
		"consecutiveFailures", snapshot.ConsecutiveFailures,
		"nextTier", SelectTier(snapshot.ConsecutiveFailures, e.opts.Thresholds).String())
	e.metrics.observe(snapshot)
	e.persist()
}

func (e *Escalator) sleep(ctx context.Context, d time.Duration) error {
	if e.opts.Sleep != nil {
		return e.opts.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-e.wake:
		logger.LogInfo(e.log, "Woken early")
		return nil
	case <-timer.C:
		return nil
	}
}

func (e *Escalator) persist() {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.Save(e.Snapshot()); err != nil {
		logger.LogWarn(e.log, "Failed to save repair session", "path", e.opts.Store.Path, "error", err)
	}
}

func (e *Escalator) audit(a RepairAttempt, s RepairSession) {
	if e.opts.Audit == nil {
		return
	}
	outcome := "failure"
	if a.Success {
		outcome = "success"
	}
	row := []string{
		a.Tier.String(),
		strconv.FormatBool(a.Forced),
		outcome,
		strconv.Itoa(s.ConsecutiveFailures),
		strconv.Itoa(s.TotalAttempts),
		strings.Join(a.FailingChecks, ";"),
		strings.Join(a.Errors, "; "),
	}
	if err := e.opts.Audit.WriteRow(row); err != nil {
		logger.LogWarn(e.log, "Failed to write audit row", "error", err)
	}
}

func (s RepairSession) lastFailing() []string {
	if s.LastReport == nil {
		return nil
	}
	return s.LastReport.FailedNames()
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}
