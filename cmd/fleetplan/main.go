package main

import (
	"os"

	"github.com/elektrokombinacija/fleetplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
