package main

import "context"

//go:generate mockery
type Settings interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// StoreHandle exposes the four probe primitives of the persistent data
// store. The subsystem never modifies the store through this interface.
//
//go:generate mockery
type StoreHandle interface {
	Open(ctx context.Context) error
	CheckIntegrity(ctx context.Context) error
	MigrationVersion(ctx context.Context) (int, error)
	ListSettings(ctx context.Context) ([]string, error)
	Close() error
}

//go:generate mockery
type VersionTracker interface {
	DetectUpdate() (bool, error)
	CommitVersion() error
	UpdateDetected() bool
}

//go:generate mockery
type HealthChecker interface {
	RunHealthChecks() HealthCheckReport
}

//go:generate mockery
type BackupManager interface {
	CreatePreUpdateBackup() (*VersionBackupMetadata, error)
	CleanupOldBackups() error
	LoadMetadata() (*VersionBackupMetadata, error)
}

//go:generate mockery
type RollbackExecutor interface {
	RollbackToPreviousVersion() error
}

//go:generate mockery
type SkipListManager interface {
	AddFailedVersion(version string) error
	GetFailedVersions() []string
	ClearFailedVersions() error
}

// Restarter terminates the current process and relaunches the executable
// at its current on-disk path. Called only after the binary swap.
//
//go:generate mockery
type Restarter interface {
	Restart() error
}
