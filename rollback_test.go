package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"selfupdate/mocks"
)

type rollbackFixture struct {
	executor *RollbackExecutorImpl
	backups  *BackupManagerImpl
	skipList *SkipListManagerImpl
	restart  *mocks.RestarterMock
	exe      string
	settings *FileSettings
}

func newRollbackFixture(t *testing.T, failedVersion string) *rollbackFixture {
	t.Helper()
	manager, exe := newTestBackupManager(t, "1.0.0")
	settings := manager.settings.(*FileSettings)
	skipList := NewSkipListManager(settings)
	restart := &mocks.RestarterMock{}

	executor := NewRollbackExecutor(manager, skipList, restart, failedVersion)
	executor.executablePath = func() (string, error) { return exe, nil }
	return &rollbackFixture{
		executor: executor,
		backups:  manager,
		skipList: skipList,
		restart:  restart,
		exe:      exe,
		settings: settings,
	}
}

func TestRollback_NoBackupFound(t *testing.T) {
	f := newRollbackFixture(t, "1.1.0")

	err := f.executor.RollbackToPreviousVersion()

	var rollbackErr *RollbackError
	require.ErrorAs(t, err, &rollbackErr)
	require.Equal(t, RollbackNoBackupFound, rollbackErr.Kind)

	// no filesystem mutation, no restart
	data, readErr := os.ReadFile(f.exe)
	require.NoError(t, readErr)
	require.Equal(t, "executable 1.0.0", string(data))
	f.restart.AssertNotCalled(t, "Restart")
}

func TestRollback_BackupArtifactGone(t *testing.T) {
	f := newRollbackFixture(t, "1.1.0")
	meta, err := f.backups.CreatePreUpdateBackup()
	require.NoError(t, err)
	require.NoError(t, os.Remove(meta.BackupPath))

	err = f.executor.RollbackToPreviousVersion()

	var rollbackErr *RollbackError
	require.ErrorAs(t, err, &rollbackErr)
	require.Equal(t, RollbackBackupMissing, rollbackErr.Kind)
	f.restart.AssertNotCalled(t, "Restart")
}

func TestRollback_RestoresBinaryAndRestarts(t *testing.T) {
	f := newRollbackFixture(t, "1.1.0")

	// backup the 1.0.0 binary, then simulate the update overwriting it
	_, err := f.backups.CreatePreUpdateBackup()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.exe, []byte("executable 1.1.0 broken"), 0o755))

	f.restart.On("Restart").Return(nil)

	require.NoError(t, f.executor.RollbackToPreviousVersion())

	data, err := os.ReadFile(f.exe)
	require.NoError(t, err)
	require.Equal(t, "executable 1.0.0", string(data))

	info, err := os.Stat(f.exe)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = os.Stat(f.exe + rollbackAsideSuffix)
	require.True(t, os.IsNotExist(err))

	require.Equal(t, []string{"1.1.0"}, f.skipList.GetFailedVersions())
	f.restart.AssertExpectations(t)
}

func TestRollback_RestoresBundle(t *testing.T) {
	dataDir := t.TempDir()
	installDir := filepath.Join(dataDir, "Applications")
	exe := filepath.Join(installDir, "Sample.app", "Contents", "MacOS", "sample")
	writeTree(t, installDir, map[string]string{
		"Sample.app/Contents/MacOS/sample": "bundle 1.0.0",
		"Sample.app/Contents/Info.plist":   "<plist/>",
	})

	settings := NewFileSettings(filepath.Join(dataDir, "settings.yml"))
	manager := NewBackupManager(settings, filepath.Join(dataDir, "backups"), "1.0.0")
	manager.platform = PlatformBundleArchive
	manager.executablePath = func() (string, error) { return exe, nil }
	_, err := manager.CreatePreUpdateBackup()
	require.NoError(t, err)

	// the update replaced the bundle with a broken one
	require.NoError(t, os.WriteFile(filepath.Join(installDir, "Sample.app", "Contents", "MacOS", "sample"), []byte("bundle 1.1.0 broken"), 0o755))

	restart := &mocks.RestarterMock{}
	restart.On("Restart").Return(nil)
	executor := NewRollbackExecutor(manager, NewSkipListManager(settings), restart, "1.1.0")
	executor.executablePath = func() (string, error) { return exe, nil }

	require.NoError(t, executor.RollbackToPreviousVersion())

	data, err := os.ReadFile(exe)
	require.NoError(t, err)
	require.Equal(t, "bundle 1.0.0", string(data))

	_, err = os.Stat(filepath.Join(installDir, "Sample.app"+rollbackAsideSuffix))
	require.True(t, os.IsNotExist(err))
	restart.AssertExpectations(t)
}

func TestRollback_NeverTouchesTheDataStore(t *testing.T) {
	f := newRollbackFixture(t, "1.1.0")
	_, err := f.backups.CreatePreUpdateBackup()
	require.NoError(t, err)

	storeFile := filepath.Join(filepath.Dir(f.exe), "store.db")
	require.NoError(t, os.WriteFile(storeFile, []byte("user data"), 0o644))

	f.restart.On("Restart").Return(nil)
	require.NoError(t, f.executor.RollbackToPreviousVersion())

	data, err := os.ReadFile(storeFile)
	require.NoError(t, err)
	require.Equal(t, "user data", string(data))
}
