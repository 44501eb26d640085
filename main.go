// Package main is the entry point for the wiretrace offline tooling.
package main

import (
	"fmt"
	"os"

	"github.com/wiretrace/wiretrace/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
