package main

import (
	"os"

	"github.com/PratikDhanave/passcount/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
