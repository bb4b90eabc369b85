package main

import (
	"fmt"
	"os"

	"github.com/Robust-infrastructure/ri-event-log/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
