package main

import (
	"os"

	"github.com/nissyi-gh/remind/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
