package main

import (
	"os"
	"path/filepath"

	"github.com/ocelot-cloud/shared/utils"
	tr "github.com/ocelot-cloud/task-runner"
)

var logger = utils.ProvideLogger("info")

func getCurrentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		tr.CleanupAndExitWithError()
	}
	return dir
}

func defaultDataDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		dir, _ := os.Getwd()
		return filepath.Join(dir, ".selfupdate")
	}
	return filepath.Join(configDir, "selfupdate")
}
