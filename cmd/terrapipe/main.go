package main

import (
	"os"

	"github.com/gear6io/terrapipe/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
