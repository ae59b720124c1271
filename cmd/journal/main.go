// Command journal is the audio journal CLI.
package main

import (
	"context"
	"os"

	"github.com/roach88/audiojournal/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), &cli.RootOptions{}, os.Args[1:], os.Stdout, os.Stderr))
}
