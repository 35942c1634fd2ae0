package main

// HealthCheckError is the failure of a single probe. Critical failures
// drive the overall pass/fail decision, non-critical ones are logged only.
type HealthCheckError struct {
	Check    string
	Critical bool
	Err      error
}

func (e *HealthCheckError) Error() string {
	if e.Err == nil {
		return e.Check + " check failed"
	}
	return e.Check + " check failed: " + e.Err.Error()
}

func (e *HealthCheckError) Unwrap() error {
	return e.Err
}

type BackupErrorKind string

const (
	BackupPathNotFound        BackupErrorKind = "path-not-found"
	BackupCopyFailed          BackupErrorKind = "copy-failed"
	BackupArchiveFailed       BackupErrorKind = "archive-failed"
	BackupSettingsWriteFailed BackupErrorKind = "settings-write-failed"
	BackupPruneFailed         BackupErrorKind = "prune-failed"
)

type BackupError struct {
	Kind BackupErrorKind
	Err  error
}

func (e *BackupError) Error() string {
	if e.Err == nil {
		return "backup failed: " + string(e.Kind)
	}
	return "backup failed (" + string(e.Kind) + "): " + e.Err.Error()
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

type RollbackErrorKind string

const (
	RollbackNoBackupFound       RollbackErrorKind = "no-backup-found"
	RollbackBackupMissing       RollbackErrorKind = "backup-missing"
	RollbackFileOperationFailed RollbackErrorKind = "file-operation-failed"
	RollbackExePathNotFound     RollbackErrorKind = "exe-path-not-found"
)

type RollbackError struct {
	Kind RollbackErrorKind
	Err  error
}

func (e *RollbackError) Error() string {
	if e.Err == nil {
		return "rollback failed: " + string(e.Kind)
	}
	return "rollback failed (" + string(e.Kind) + "): " + e.Err.Error()
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}
