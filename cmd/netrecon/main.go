// Command netrecon is the CLI driver for the host-discovery and
// port/service reconnaissance engine. It is intentionally thin: all
// scanning and persistence logic lives in pkg/orchestrator and the
// packages it wires together.
package main

import (
	"fmt"
	"os"

	"github.com/netrecon/netrecon/cmd/netrecon/command"
)

func main() {
	if err := command.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
