// Command ilpatch applies pattern patches to instruction listings.
package main

import (
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/roach88/ilpatch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(cli.GetExitCode(err))
	}
	atexit.Exit(0)
}
