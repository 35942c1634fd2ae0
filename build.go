//go:build wireinject
// +build wireinject

package main

import (
	"path/filepath"

	"github.com/google/wire"

	"selfupdate/internal/store"
)

type Deps struct {
	Updater  *Updater
	SkipList SkipListManager
}

func Initialize() (Deps, error) {
	wire.Build(
		NewUpdater,
		provideSettings,
		provideVersionTracker,
		provideHealthChecker,
		provideBackupManager,
		provideRollbackExecutor,
		NewSkipListManager,
		wire.Bind(new(Settings), new(*FileSettings)),
		wire.Bind(new(VersionTracker), new(*VersionTrackerImpl)),
		wire.Bind(new(HealthChecker), new(*HealthCheckerImpl)),
		wire.Bind(new(BackupManager), new(*BackupManagerImpl)),
		wire.Bind(new(RollbackExecutor), new(*RollbackExecutorImpl)),
		wire.Bind(new(SkipListManager), new(*SkipListManagerImpl)),
		wire.Struct(new(Deps), "*"),
	)
	return Deps{}, nil
}

func provideSettings() *FileSettings {
	return NewFileSettings(filepath.Join(dataDir, "settings.yml"))
}

func provideVersionTracker(settings Settings) *VersionTrackerImpl {
	return NewVersionTracker(settings, Version)
}

func provideHealthChecker() *HealthCheckerImpl {
	return NewHealthChecker(store.New(storePath), store.ExpectedMigrationVersion)
}

func provideBackupManager(settings Settings) *BackupManagerImpl {
	return NewBackupManager(settings, filepath.Join(dataDir, "backups"), Version)
}

func provideRollbackExecutor(backups BackupManager, skipList SkipListManager) *RollbackExecutorImpl {
	return NewRollbackExecutor(backups, skipList, NewRestarter(), Version)
}
