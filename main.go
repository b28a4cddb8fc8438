package main

import (
	"os"

	_ "tunman/cmd"
	"tunman/cmd/root"
	"tunman/internal/config"
	"tunman/internal/logger"
)

func main() {
	// The daemon mirrors log output to the console, CLI commands stay quiet.
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"
	logger.InitLogger(config.Config.Log.Path, config.Config.Log.Level, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
