package main

import (
	"context"
	"fmt"
	"time"
)

// The global ceiling keeps first-launch-after-update from feeling broken.
// The per-probe timeouts fit inside it rather than add up past it.
const defaultHealthCheckBudget = 5 * time.Second

type probe struct {
	name     string
	timeout  time.Duration
	critical bool
	run      func(ctx context.Context) error
}

func NewHealthChecker(store StoreHandle, expectedSchemaVersion int) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:                 store,
		expectedSchemaVersion: expectedSchemaVersion,
		globalBudget:          defaultHealthCheckBudget,
	}
}

// RunHealthChecks executes the ordered probe sequence. Critical failures
// short-circuit the remaining probes since a store that cannot open or is
// corrupt will not pass anything downstream. Probes left unrun when the
// global budget is exhausted are reported as failed for diagnostics only;
// they never drive the pass/fail decision.
func (h *HealthCheckerImpl) RunHealthChecks() HealthCheckReport {
	start := time.Now()
	report := HealthCheckReport{Passed: true}

	probes := []probe{
		{checkConnectivity, 1 * time.Second, true, h.store.Open},
		{checkIntegrity, 2 * time.Second, true, h.store.CheckIntegrity},
		{checkSchema, 1 * time.Second, true, h.probeSchema},
		{checkSettings, 1 * time.Second, false, h.probeSettings},
	}

	defer func() {
		if err := h.store.Close(); err != nil {
			logger.Info("failed to close store after health checks: %v", err)
		}
	}()

	shortCircuited := false
	for _, p := range probes {
		if shortCircuited {
			report.Failures = append(report.Failures, CheckFailure{
				CheckName:    p.name,
				ErrorMessage: "not run: earlier critical failure",
				Critical:     false,
			})
			continue
		}
		remaining := h.globalBudget - time.Since(start)
		if remaining <= 0 {
			report.Failures = append(report.Failures, CheckFailure{
				CheckName:    p.name,
				ErrorMessage: "not run: health check budget exhausted",
				Critical:     false,
			})
			continue
		}

		err := runProbe(p, remaining)
		report.ChecksRun++
		if err == nil {
			logger.Debug("health check %s passed", p.name)
			continue
		}
		checkErr := &HealthCheckError{Check: p.name, Critical: p.critical, Err: err}
		logger.Error("health check failed: %v", checkErr)
		report.Failures = append(report.Failures, CheckFailure{
			CheckName:    p.name,
			ErrorMessage: err.Error(),
			Critical:     p.critical,
		})
		if p.critical {
			report.Passed = false
			shortCircuited = true
		}
	}

	report.Duration = time.Since(start)
	return report
}

// runProbe bounds a single probe by the smaller of its own timeout and
// the remaining global budget. A hanging probe becomes a failure for
// that probe instead of stalling the whole orchestrator.
func runProbe(p probe, remaining time.Duration) error {
	timeout := p.timeout
	if remaining < timeout {
		timeout = remaining
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("timed out after %s", timeout)
	}
}

func (h *HealthCheckerImpl) probeSchema(ctx context.Context) error {
	actual, err := h.store.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	if actual != h.expectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: store has %d, binary expects %d", actual, h.expectedSchemaVersion)
	}
	return nil
}

func (h *HealthCheckerImpl) probeSettings(ctx context.Context) error {
	_, err := h.store.ListSettings(ctx)
	return err
}
