package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cleitonmarx/teardown/internal/cli"
)

func main() {
	if err := cli.NewCommand().ExecuteContext(context.Background()); err != nil {
		exitWithErr(err)
	}
}

func exitWithErr(err error) {
	_, _ = fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
