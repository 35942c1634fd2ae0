package main

import (
	"fmt"
	"os"
	"os/exec"
)

// ExecRestarter relaunches the executable at its current on-disk path as
// a detached process and exits. After a rollback the path holds the
// restored binary, so the relaunch runs the previous version.
type ExecRestarter struct{}

func NewRestarter() *ExecRestarter {
	return &ExecRestarter{}
}

func (ExecRestarter) Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to relaunch %s: %w", exe, err)
	}
	if err := cmd.Process.Release(); err != nil {
		logger.Info("failed to release relaunched process: %v", err)
	}
	logger.Info("restarting into %s", exe)
	os.Exit(0)
	return nil
}
