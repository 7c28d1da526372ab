package main

import (
	"github.com/spf13/cobra"

	"github.com/mistvale/chargen/internal/admin"
	"github.com/mistvale/chargen/internal/tui"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Open the administrator console",
	Long: `Inspect and tune stage implementations: list them, change their
settings, and swap which one is in service. Swaps are confirmation-gated.`,
	Args: cobra.NoArgs,
	RunE: runAdmin,
}

func init() {
	rootCmd.AddCommand(adminCmd)
}

func runAdmin(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(dataRoot)
	if err != nil {
		return err
	}
	defer rt.close()

	confirmer := admin.NewConfirmer(rt.cfg.ProposalTTL(),
		admin.WithConfirmerJournal(rt.journal))
	if err := confirmer.StartSweeper(); err != nil {
		return err
	}
	defer confirmer.StopSweeper()

	console := admin.NewConsole(rt.registry, confirmer, rt.store, rt.journal)
	return tui.Run(tui.NewConsole("chargen — admin", console.Handle, console.Handle("stages")))
}
