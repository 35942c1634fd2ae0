package main

// StartupReport tells the UI layer what happened during the startup
// check so it can show a "freshly updated" confirmation, a rollback
// notice, or nothing at all.
type StartupReport struct {
	UpdateDetected bool
	HealthReport   *HealthCheckReport
	Committed      bool
	RolledBack     bool
	ErrorMessage   string
}

// Updater runs the detect -> check -> (commit | rollback) pipeline once,
// synchronously, at startup, before normal operation proceeds. It is
// deliberately not a background task: the user must not interact with a
// possibly-broken app while the decision is pending.
type Updater struct {
	tracker       VersionTracker
	healthChecker HealthChecker
	backups       BackupManager
	rollback      RollbackExecutor
}

func NewUpdater(tracker VersionTracker, healthChecker HealthChecker, backups BackupManager, rollback RollbackExecutor) *Updater {
	return &Updater{
		tracker:       tracker,
		healthChecker: healthChecker,
		backups:       backups,
		rollback:      rollback,
	}
}

func (u *Updater) RunStartupCheck() (*StartupReport, error) {
	detected, err := u.tracker.DetectUpdate()
	if err != nil {
		return nil, err
	}
	report := &StartupReport{UpdateDetected: detected}
	if !detected {
		return report, nil
	}

	healthReport := u.healthChecker.RunHealthChecks()
	report.HealthReport = &healthReport
	if healthReport.Passed {
		if err := u.tracker.CommitVersion(); err != nil {
			return report, err
		}
		report.Committed = true
		if err := u.backups.CleanupOldBackups(); err != nil {
			logger.Info("failed to prune old backups: %v", err)
		}
		return report, nil
	}

	logger.Error("health checks failed after update, rolling back")
	if err := u.rollback.RollbackToPreviousVersion(); err != nil {
		report.ErrorMessage = "Update failed and automatic recovery also failed - manual reinstall required: " + err.Error()
		return report, err
	}
	// Unreachable with the real restarter: Restart does not return.
	report.RolledBack = true
	return report, nil
}
