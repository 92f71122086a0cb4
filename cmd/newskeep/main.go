package main

import (
	"os"

	"github.com/newskeep/newskeep/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
