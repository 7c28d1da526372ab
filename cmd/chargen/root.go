package main

import (
	"os"

	"github.com/spf13/cobra"
)

var dataRoot string

var rootCmd = &cobra.Command{
	Use:   "chargen",
	Short: "Character application pipeline for the Mistvale game server",
	Long: `chargen runs the Mistvale character-application pipeline: applicants
answer each stage in dependency order, administrators tune and swap stage
implementations live, and reviewers approve or reject submissions over HTTP.

Run 'chargen init' once to create the .chargen data directory.`,
	SilenceUsage: true,
}

func init() {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	rootCmd.PersistentFlags().StringVar(&dataRoot, "root", cwd,
		"directory holding the .chargen data directory")
}
