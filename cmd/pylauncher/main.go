package main

import (
	"os"

	"github.com/rokm/pylauncher"
)

func main() {
	os.Exit(pylauncher.Run())
}
