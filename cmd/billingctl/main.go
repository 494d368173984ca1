// Package main is the entry point for the billingctl operator CLI.
package main

import (
	"os"

	"telecom-billing/cmd/billingctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
