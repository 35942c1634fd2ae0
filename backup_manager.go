package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Platform tags the shape of the installable unit. The two shapes share
// nothing beyond the metadata record, so a tag plus a branch is clearer
// than an abstraction layer.
type Platform string

const (
	PlatformPrimaryBinary Platform = "primary-binary"
	PlatformBundleArchive Platform = "bundle-archive"
)

// VersionBackupMetadata describes the single retained pre-update backup.
// It is never mutated, only replaced wholesale.
type VersionBackupMetadata struct {
	FromVersion string    `yaml:"from_version"`
	Platform    Platform  `yaml:"platform"`
	BackupPath  string    `yaml:"backup_path"`
	Timestamp   time.Time `yaml:"timestamp"`
}

const (
	binaryBackupSuffix = ".bak"
	bundleBackupSuffix = ".tar.gz"

	// The executable lives nested inside the bundle, e.g.
	// Bundle/Contents/MacOS/exe. Three parents up is the bundle root,
	// one more is the installation directory the bundle lives in.
	bundleExecutableDepth = 3
)

// BundleRoot resolves the bundle root from the running executable's
// path. Pure path arithmetic, no filesystem access.
func BundleRoot(exePath string) string {
	root := exePath
	for i := 0; i < bundleExecutableDepth; i++ {
		root = filepath.Dir(root)
	}
	return root
}

// InstallDir resolves the directory the bundle is installed in.
func InstallDir(exePath string) string {
	return filepath.Dir(BundleRoot(exePath))
}

// PlatformForOS picks the installable-unit shape for an operating system.
func PlatformForOS(goos string) Platform {
	if goos == "darwin" {
		return PlatformBundleArchive
	}
	return PlatformPrimaryBinary
}

type BackupManagerImpl struct {
	settings       Settings
	backupDir      string
	platform       Platform
	currentVersion string
	executablePath func() (string, error)
}

func NewBackupManager(settings Settings, backupDir, currentVersion string) *BackupManagerImpl {
	return &BackupManagerImpl{
		settings:       settings,
		backupDir:      backupDir,
		platform:       PlatformForOS(runtime.GOOS),
		currentVersion: currentVersion,
		executablePath: os.Executable,
	}
}

// CreatePreUpdateBackup captures a restorable snapshot of the current
// installable unit. It runs while the pre-update binary is still current,
// before the new binary is installed.
func (b *BackupManagerImpl) CreatePreUpdateBackup() (*VersionBackupMetadata, error) {
	exe, err := b.executablePath()
	if err != nil {
		return nil, &BackupError{Kind: BackupPathNotFound, Err: err}
	}
	if err := os.MkdirAll(b.backupDir, 0o755); err != nil {
		return nil, &BackupError{Kind: BackupCopyFailed, Err: err}
	}

	now := time.Now().UTC()
	stem := fmt.Sprintf("%s-v%s-%d", backupBaseName(exe, b.platform), b.currentVersion, now.Unix())

	var backupPath string
	switch b.platform {
	case PlatformBundleArchive:
		backupPath = filepath.Join(b.backupDir, stem+bundleBackupSuffix)
		if err := CreateArchive(BundleRoot(exe), backupPath); err != nil {
			return nil, &BackupError{Kind: BackupArchiveFailed, Err: err}
		}
	default:
		backupPath = filepath.Join(b.backupDir, stem+binaryBackupSuffix)
		if err := copyFile(exe, backupPath); err != nil {
			removePartial(backupPath)
			return nil, &BackupError{Kind: BackupCopyFailed, Err: err}
		}
	}

	meta := &VersionBackupMetadata{
		FromVersion: b.currentVersion,
		Platform:    b.platform,
		BackupPath:  backupPath,
		Timestamp:   now,
	}
	if err := b.storeMetadata(meta); err != nil {
		removePartial(backupPath)
		return nil, &BackupError{Kind: BackupSettingsWriteFailed, Err: err}
	}
	logger.Info("created pre-update backup of version %s at %s", b.currentVersion, backupPath)
	return meta, nil
}

// CleanupOldBackups deletes every backup artifact except the single
// newest. Invoked only after a new update's health check has passed, so
// cleanup always trails one successful cycle behind creation and a
// backup is never deleted while it is the only recovery path.
func (b *BackupManagerImpl) CleanupOldBackups() error {
	entries, err := os.ReadDir(b.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &BackupError{Kind: BackupPruneFailed, Err: err}
	}

	type artifact struct {
		path      string
		timestamp int64
	}
	var artifacts []artifact
	for _, entry := range entries {
		if entry.IsDir() || !isBackupArtifact(entry.Name()) {
			continue
		}
		path := filepath.Join(b.backupDir, entry.Name())
		artifacts = append(artifacts, artifact{path: path, timestamp: artifactTimestamp(path)})
	}
	if len(artifacts) <= 1 {
		return nil
	}
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].timestamp > artifacts[j].timestamp
	})

	var merr *multierror.Error
	for _, old := range artifacts[1:] {
		logger.Info("pruning old backup %s", old.path)
		if err := os.Remove(old.path); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to remove %s: %w", old.path, err))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return &BackupError{Kind: BackupPruneFailed, Err: err}
	}
	return nil
}

// LoadMetadata reads the retained backup record. Returns nil without
// error when no backup has ever been created.
func (b *BackupManagerImpl) LoadMetadata() (*VersionBackupMetadata, error) {
	raw, err := b.settings.Get(keyPreUpdateBackup)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var meta VersionBackupMetadata
	if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
		logger.Error("backup metadata is unreadable: %v", err)
		return nil, fmt.Errorf("failed to unmarshal backup metadata: %w", err)
	}
	return &meta, nil
}

func (b *BackupManagerImpl) storeMetadata(meta *VersionBackupMetadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return err
	}
	return b.settings.Set(keyPreUpdateBackup, string(data))
}

func backupBaseName(exePath string, platform Platform) string {
	if platform == PlatformBundleArchive {
		return filepath.Base(BundleRoot(exePath))
	}
	return filepath.Base(exePath)
}

func isBackupArtifact(name string) bool {
	return strings.HasSuffix(name, binaryBackupSuffix) || strings.HasSuffix(name, bundleBackupSuffix)
}

// artifactTimestamp parses the unix timestamp embedded in the artifact
// name, falling back to the file modification time.
func artifactTimestamp(path string) int64 {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, bundleBackupSuffix)
	name = strings.TrimSuffix(name, binaryBackupSuffix)
	if idx := strings.LastIndex(name, "-"); idx != -1 {
		if ts, err := strconv.ParseInt(name[idx+1:], 10, 64); err == nil {
			return ts
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error("failed to remove partial backup %s: %v", path, err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logger.Info("failed to close source file: %v", err)
		}
	}()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Info("failed to close destination file: %v", err)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return nil
}
