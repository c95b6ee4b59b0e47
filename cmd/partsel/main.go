package main

import (
	"fmt"
	"os"

	"github.com/roach88/partsel/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands that print their own errors return an ExitError; cobra
		// errors (unknown flags, missing args) are printed here.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
