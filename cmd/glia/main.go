// Package main provides the glia command-line tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:   "glia",
	Short: "Glia symbolic tensor expression compiler",
	Long: `Glia builds symbolic tensor expression graphs, optimizes them and
compiles them into callable functions on CPU or WebGPU backends.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("glia %s\n", version)
	},
}

func main() {
	rootCmd.AddCommand(versionCmd, doctorCmd, benchCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
