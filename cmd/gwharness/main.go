package main

import (
	"os"

	"tengw/cmd/gwharness/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
