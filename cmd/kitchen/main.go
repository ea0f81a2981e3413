package main

import (
	"fmt"
	"os"

	"github.com/buildtall-systems/kitchen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kitchen:", err)
		os.Exit(1)
	}
}
