// Command hull runs the hull task board CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hull/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
