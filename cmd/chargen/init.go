package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mistvale/chargen/internal/config"
	"github.com/mistvale/chargen/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .chargen data directory",
	Long: `Creates .chargen/ with default settings, the starter content library
and an empty application store. Existing files are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.InitDataDir(dataRoot); err != nil {
		return err
	}
	cfg, err := config.Load(dataRoot)
	if err != nil {
		return err
	}
	// Opening once creates the schema.
	st, err := store.Open(cfg.StorePath())
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return err
	}
	fmt.Printf("initialized %s\n", filepath.Join(dataRoot, config.ChargenDir))
	return nil
}
