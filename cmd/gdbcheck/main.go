// Command gdbcheck validates land-survey geodatabases.
package main

import (
	"os"

	"github.com/ApiratRepublic/RePublic/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
