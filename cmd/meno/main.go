package main

import (
	"os"

	"meno/internal/commands"
	appLog "meno/internal/log"
)

func main() {
	if err := commands.New().Execute(); err != nil {
		appLog.Error("command failed", err)
		os.Exit(1)
	}
}
