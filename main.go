package main

import (
	"os"

	"github.com/lustra-ai/lustra/cli"
)

func main() {
	cmd := cli.RootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
