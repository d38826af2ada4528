package main

import (
	"os"

	"github.com/ttlang/go-tt/cmd/ttc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
