package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/kinetic/internal/cli"
)

func main() {
	rootCmd := cli.NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
