package main

import (
	"os"

	"github.com/igorwgn/vitrine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
