package main

import (
	"context"
	"os"

	"github.com/awnumar/memguard"
	"github.com/dmitrijs2005/docvault/internal/cli"
)

func main() {
	// Wipe guarded key memory if the process is interrupted.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	ctx := context.Background()
	app := cli.New(os.Stdin, os.Stdout, os.Stderr)

	if err := app.Execute(ctx, os.Args[1:]); err != nil {
		app.Report(ctx, err)
		memguard.SafeExit(1)
	}
}
