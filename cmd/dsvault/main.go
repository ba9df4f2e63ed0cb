package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/systmms/dsvault/cmd/dsvault/commands"
	"github.com/systmms/dsvault/internal/config"
	dverrors "github.com/systmms/dsvault/internal/errors"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// wipe enclave keys on Ctrl-C before exiting
	memguard.CatchInterrupt()
	os.Exit(run())
}

func run() int {
	defer memguard.Purge()

	cfg := &config.Config{}
	rootCmd := commands.NewRootCommand(cfg, commands.BuildInfo{Version: version, Commit: commit, Date: date})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var exitErr commands.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", dverrors.SimplifyError(err))
		return 1
	}
	return 0
}
