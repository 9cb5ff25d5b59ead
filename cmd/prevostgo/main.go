package main

import (
	"os"

	"github.com/prevostgo/prevostgo/cmd/prevostgo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
