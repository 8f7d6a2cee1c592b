// Package main is the entry point for the effects CLI.
package main

import (
	"os"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/cmd/effects/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
