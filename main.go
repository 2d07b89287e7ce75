// Package main is the entry point for the rohcdump decompression tool.
package main

import (
	"fmt"
	"os"

	"github.com/WeirdyBenji/librohc/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
