package main

import (
	"os"

	"github.com/streamstore/streamstore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
