package main

import (
	"os"

	"github.com/agentsight/agentsight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
