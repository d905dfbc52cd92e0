// Package main is the entry point for bundlectl, the command line client of
// the bundlehost management API.
//
// Usage:
//
//	bundlectl pack ./wordcount wordcount.bundle
//	bundlectl upload wordcount.bundle --server http://localhost:8000
//	bundlectl list
//	bundlectl versions wordCountTopology
//	bundlectl download wordCountTopology latest -o wc.bundle
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
