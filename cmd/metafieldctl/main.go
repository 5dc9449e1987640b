package main

import (
	"os"

	"github.com/goliatone/go-metafields/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
