// Command zobject inspects and maintains zobject store files.
package main

import (
	"os"

	"github.com/roach88/zobject/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
