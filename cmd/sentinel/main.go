package main

import (
	"os"

	"GTAASentinel/cmd/sentinel/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
