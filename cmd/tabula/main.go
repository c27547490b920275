// Command tabula evaluates typed pipeline expressions over tables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/tabula/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil && !cli.IsReported(err) {
		fmt.Fprintln(os.Stderr, "tabula:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
