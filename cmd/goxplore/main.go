// Command goxplore is the CLI entry point for the pipeline.
package main

import (
	"github.com/dbsmedya/goxplore/cmd/goxplore/cmd"
)

func main() {
	cmd.Execute()
}
