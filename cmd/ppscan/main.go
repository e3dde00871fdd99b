package main

import (
	"os"

	"ppscan/cmd/ppscan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
