// Package main is the entry point for the pkgabidiff CLI.
package main

import "pkgabidiff.dev/pkg/pkgabidiff/cmd"

func main() {
	cmd.Execute()
}
