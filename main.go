package main

import (
	"errors"
	"fmt"
	"path/filepath"

	tr "github.com/ocelot-cloud/task-runner"
	"github.com/spf13/cobra"

	"selfupdate/internal/store"
)

var (
	dataDir   string
	storePath string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", defaultDataDir(), "directory for settings and version backups")
	rootCmd.PersistentFlags().StringVarP(&storePath, "store", "s", "", "path to the persistent data store (default <data-dir>/store.db)")
}

func main() {
	tr.HandleSignals()

	rootCmd.AddCommand(startupCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(rollbackCmd)
	failedVersionsCmd.AddCommand(clearFailedVersionsCmd)
	rootCmd.AddCommand(failedVersionsCmd)
	rootCmd.AddCommand(testUnitsCmd)
	rootCmd.CompletionOptions = cobra.CompletionOptions{DisableDefaultCmd: true}

	if err := rootCmd.Execute(); err != nil {
		tr.ColoredPrintln("error: %v", err)
		tr.CleanupAndExitWithError()
	}
}

var rootCmd = &cobra.Command{
	Use:   "selfupdate",
	Short: "post-update health checks and rollback",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

type pipeline struct {
	Settings      Settings
	Tracker       VersionTracker
	HealthChecker HealthChecker
	Backups       BackupManager
	Rollback      RollbackExecutor
	SkipList      SkipListManager
	Updater       *Updater
}

func buildPipeline() pipeline {
	if storePath == "" {
		storePath = filepath.Join(dataDir, "store.db")
	}
	settings := NewFileSettings(filepath.Join(dataDir, "settings.yml"))
	handle := store.New(storePath)
	tracker := NewVersionTracker(settings, Version)
	healthChecker := NewHealthChecker(handle, store.ExpectedMigrationVersion)
	backups := NewBackupManager(settings, filepath.Join(dataDir, "backups"), Version)
	skipList := NewSkipListManager(settings)
	rollback := NewRollbackExecutor(backups, skipList, NewRestarter(), Version)
	return pipeline{
		Settings:      settings,
		Tracker:       tracker,
		HealthChecker: healthChecker,
		Backups:       backups,
		Rollback:      rollback,
		SkipList:      skipList,
		Updater:       NewUpdater(tracker, healthChecker, backups, rollback),
	}
}

var startupCmd = &cobra.Command{
	Use:   "startup",
	Short: "run the post-update startup check, rolling back on failure",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := buildPipeline()
		report, err := p.Updater.RunStartupCheck()
		if report != nil {
			fmt.Println(reportStartup(*report))
		}
		return err
	},
}

var healthCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "run the store health checks once and report",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr.PrintTaskDescription("running health checks")
		p := buildPipeline()
		report := p.HealthChecker.RunHealthChecks()
		fmt.Println(reportHealth(report))
		if !report.Passed {
			return errors.New("health checks failed")
		}
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "create a pre-update backup of the current installable unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr.PrintTaskDescription("creating pre-update backup")
		p := buildPipeline()
		meta, err := p.Backups.CreatePreUpdateBackup()
		if err != nil {
			return err
		}
		fmt.Printf("backed up version %s to %s\n", meta.FromVersion, meta.BackupPath)
		return nil
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "restore the previous version from backup and restart",
	RunE: func(cmd *cobra.Command, args []string) error {
		tr.PrintTaskDescription("rolling back to previous version")
		p := buildPipeline()
		if err := p.Rollback.RollbackToPreviousVersion(); err != nil {
			return fmt.Errorf("automatic recovery failed - manual reinstall may be required: %w", err)
		}
		return nil
	},
}

var failedVersionsCmd = &cobra.Command{
	Use:   "failed-versions",
	Short: "list versions that previously failed health checks",
	Run: func(cmd *cobra.Command, args []string) {
		p := buildPipeline()
		fmt.Println(reportFailedVersions(p.SkipList.GetFailedVersions()))
	},
}

var clearFailedVersionsCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear the failed-version list so all versions are offered again",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := buildPipeline()
		return p.SkipList.ClearFailedVersions()
	},
}

var testUnitsCmd = &cobra.Command{
	Use:   "test",
	Short: "execute unit tests",
	Run: func(cmd *cobra.Command, args []string) {
		tr.PrintTaskDescription("execute unit tests")
		tr.ExecuteInDir(getCurrentDir(), "go test -count=1 ./...")
	},
}
