// Command sercha-synth is the multi-source query and model-routing engine.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-synth/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
