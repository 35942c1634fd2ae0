package main

import (
	"fmt"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// VersionTrackerImpl detects binary replacements by comparing the
// compiled-in version against the persisted installed-version record.
type VersionTrackerImpl struct {
	settings       Settings
	currentVersion string
}

func NewVersionTracker(settings Settings, currentVersion string) *VersionTrackerImpl {
	return &VersionTrackerImpl{settings: settings, currentVersion: currentVersion}
}

// DetectUpdate returns true only when the running version is newer than
// the installed record under semver ordering. A plain string comparison
// would misreport downgrades and re-installs as updates. A missing or
// unreadable record is treated as first run: the current version is
// adopted as the baseline and no update is reported.
func (v *VersionTrackerImpl) DetectUpdate() (bool, error) {
	current, err := goversion.NewVersion(v.currentVersion)
	if err != nil {
		return false, fmt.Errorf("invalid compiled-in version %q: %w", v.currentVersion, err)
	}

	raw, err := v.settings.Get(keyInstalledVersion)
	if err != nil {
		logger.Info("no installed version record, adopting %s as baseline", v.currentVersion)
		return false, v.adoptBaseline()
	}
	installed, err := goversion.NewVersion(raw)
	if err != nil {
		logger.Info("installed version record %q is unreadable, adopting %s as baseline", raw, v.currentVersion)
		return false, v.adoptBaseline()
	}

	if !current.GreaterThan(installed) {
		// A rollback restarts into the old binary with the flag still
		// set; clear it so the UI never announces the failed update.
		return false, v.clearDetectionFlag()
	}

	if err := v.settings.Set(keyUpdateDetected, "true"); err != nil {
		return false, err
	}
	if err := v.settings.Set(keyUpdateDetectedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return false, err
	}
	logger.Info("update detected: %s -> %s", installed, current)
	return true, nil
}

// CommitVersion records the current version as installed and clears the
// update-detected flag. Called only after a passing health check.
func (v *VersionTrackerImpl) CommitVersion() error {
	if err := v.settings.Set(keyInstalledVersion, v.currentVersion); err != nil {
		return err
	}
	return v.clearDetectionFlag()
}

// UpdateDetected reports the transient flag so the UI layer can tell a
// freshly updated launch from an ordinary one.
func (v *VersionTrackerImpl) UpdateDetected() bool {
	value, err := v.settings.Get(keyUpdateDetected)
	return err == nil && value == "true"
}

func (v *VersionTrackerImpl) adoptBaseline() error {
	if err := v.settings.Set(keyInstalledVersion, v.currentVersion); err != nil {
		return err
	}
	return v.clearDetectionFlag()
}

func (v *VersionTrackerImpl) clearDetectionFlag() error {
	if err := v.settings.Delete(keyUpdateDetected); err != nil {
		return err
	}
	return v.settings.Delete(keyUpdateDetectedAt)
}
