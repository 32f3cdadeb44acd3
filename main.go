// Package main is the entry point for the Emitron CLI application.
package main

import (
	"emitron/cli/cmd"
)

func main() {
	cmd.Execute()
}
