// The main package for the sitedigest executable.
package main

import (
	"sitedigest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
