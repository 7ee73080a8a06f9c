package main

import (
	"fmt"
	"os"

	"github.com/tphakala/contractwatch/cmd"
	"github.com/tphakala/contractwatch/internal/conf"
)

func main() {
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		os.Exit(1)
	}
}
