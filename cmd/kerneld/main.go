package main

import (
	"fmt"
	"os"

	"github.com/arctir/kerneld/cmd/kerneld/cmd"
)

func main() {
	kerneldCmd := cmd.SetupCLI()
	if err := kerneldCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
