package main

import (
	"fmt"
	"os"

	"github.com/roboco-io/imgsize/internal/cli"
)

// Set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
