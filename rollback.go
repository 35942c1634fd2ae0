package main

import (
	"errors"
	"os"
	"path/filepath"
)

const rollbackAsideSuffix = ".rollback-old"

// RollbackExecutorImpl restores the previous installable unit from the
// retained backup and restarts into it. It never touches the persistent
// data store: the old binary is expected to be compatible with whatever
// schema state the store is in, since schema compatibility is one of the
// things the failed health check would have caught.
type RollbackExecutorImpl struct {
	backups        BackupManager
	skipList       SkipListManager
	restarter      Restarter
	currentVersion string
	executablePath func() (string, error)
}

func NewRollbackExecutor(backups BackupManager, skipList SkipListManager, restarter Restarter, currentVersion string) *RollbackExecutorImpl {
	return &RollbackExecutorImpl{
		backups:        backups,
		skipList:       skipList,
		restarter:      restarter,
		currentVersion: currentVersion,
		executablePath: os.Executable,
	}
}

// RollbackToPreviousVersion performs the strictly ordered rollback steps.
// "Never had a backup" and "had one, it's gone" surface as distinct
// errors; both leave the filesystem untouched and skip the restart.
func (r *RollbackExecutorImpl) RollbackToPreviousVersion() error {
	meta, err := r.backups.LoadMetadata()
	if err != nil {
		return &RollbackError{Kind: RollbackNoBackupFound, Err: err}
	}
	if meta == nil {
		return &RollbackError{Kind: RollbackNoBackupFound, Err: errors.New("no backup has ever been created")}
	}
	if _, err := os.Stat(meta.BackupPath); err != nil {
		return &RollbackError{Kind: RollbackBackupMissing, Err: err}
	}

	exe, err := r.executablePath()
	if err != nil {
		return &RollbackError{Kind: RollbackExePathNotFound, Err: err}
	}

	switch meta.Platform {
	case PlatformBundleArchive:
		err = r.restoreBundle(exe, meta)
	default:
		err = r.restoreBinary(exe, meta)
	}
	if err != nil {
		return err
	}

	if err := r.skipList.AddFailedVersion(r.currentVersion); err != nil {
		logger.Error("failed to record %s in the skip list: %v", r.currentVersion, err)
	}
	logger.Info("rolled back from failed version %s to %s", r.currentVersion, meta.FromVersion)

	return r.restarter.Restart()
}

// restoreBinary swaps the executable through a rename so that a crash
// mid-operation always leaves an executable in place: the current binary
// is moved aside first and only removed once the backup copy succeeded.
func (r *RollbackExecutorImpl) restoreBinary(exe string, meta *VersionBackupMetadata) error {
	aside := exe + rollbackAsideSuffix
	if err := os.Rename(exe, aside); err != nil {
		return &RollbackError{Kind: RollbackFileOperationFailed, Err: err}
	}
	if err := copyFile(meta.BackupPath, exe); err != nil {
		if renameErr := os.Rename(aside, exe); renameErr != nil {
			logger.Error("failed to restore original executable after copy failure: %v", renameErr)
		}
		return &RollbackError{Kind: RollbackFileOperationFailed, Err: err}
	}
	if err := os.Chmod(exe, 0o755); err != nil {
		return &RollbackError{Kind: RollbackFileOperationFailed, Err: err}
	}
	if err := os.Remove(aside); err != nil {
		logger.Info("failed to remove displaced executable %s: %v", aside, err)
	}
	return nil
}

// restoreBundle extracts the archived bundle over the installation
// directory, keeping the broken bundle aside until extraction succeeded.
func (r *RollbackExecutorImpl) restoreBundle(exe string, meta *VersionBackupMetadata) error {
	// The archive holds paths relative to the bundle root, so the
	// reconstruction target inside the installation directory is the
	// bundle path itself.
	bundle := filepath.Join(InstallDir(exe), filepath.Base(BundleRoot(exe)))
	aside := bundle + rollbackAsideSuffix

	if err := os.Rename(bundle, aside); err != nil {
		return &RollbackError{Kind: RollbackFileOperationFailed, Err: err}
	}
	if err := ExtractArchive(meta.BackupPath, bundle); err != nil {
		if renameErr := os.Rename(aside, bundle); renameErr != nil {
			logger.Error("failed to restore original bundle after extraction failure: %v", renameErr)
		}
		return &RollbackError{Kind: RollbackFileOperationFailed, Err: err}
	}
	if err := os.RemoveAll(aside); err != nil {
		logger.Info("failed to remove displaced bundle %s: %v", aside, err)
	}
	return nil
}
