// Package main is the entry point for the ledger-loader CLI.
package main

import (
	"os"

	"github.com/trestleworks/planledger/cmd/ledger-loader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
