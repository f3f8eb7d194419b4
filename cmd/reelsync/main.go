package main

import (
	"os"

	"github.com/pilab-dev/reelsync/cmd/reelsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
