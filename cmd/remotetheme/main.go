package main

import (
	"github.com/tacogips/remotetheme/internal/cli"
)

func main() {
	// Execute the root command
	cli.Execute()
}
