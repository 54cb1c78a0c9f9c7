// Command sanitizr loads visibility-annotated record types and sanitizes
// records for user classes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sanitizr/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
