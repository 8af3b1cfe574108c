// Command sercha-ingest runs the resumable document ingestion worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/custodia-labs/sercha-ingest/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetWiring(wire)
	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
