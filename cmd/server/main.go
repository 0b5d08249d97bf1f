package main

import (
	"context"
	"fmt"
	"os"

	"ofertas/internal/cli"
)

// main only hands off to the command tree. Wiring lives in internal/cli.
func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
