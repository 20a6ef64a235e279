// Package main implements the esym CLI, which rewrites ES modules into
// ym.modules.define registrations.
package main

import (
	"os"

	"github.com/l3aro/go-esym/cmd/esym/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version += " (built " + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`esym version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
