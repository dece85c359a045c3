package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/foundit/cmd/cli/match"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:  "foundit-cli",
	Long: `Command line utilities for Foundit, the lost and found matching service`,
	// Errors are printed by Execute.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.AddGroup(match.Group)
	rootCmd.AddCommand(match.Commands()...)
}

func Execute() {
	// A missing .env file is fine, the environment can be configured by other means.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
