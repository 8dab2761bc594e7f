// Command lazytbl renders and runs YAML query plans against a
// Vertica-family server or the local SQLite sandbox.
package main

import (
	"os"

	"github.com/roach88/lazytbl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
