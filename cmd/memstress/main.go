package main

import (
	"fmt"
	"os"

	"github.com/psantana5/memstress/cmd/memstress/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
