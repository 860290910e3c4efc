package main

import (
	"os"

	"github.com/xenking/catalog-browser/cmd/catalog/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
