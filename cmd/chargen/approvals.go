package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mistvale/chargen/internal/approvals"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Serve submitted applications to the review workflow",
	Args:  cobra.NoArgs,
	RunE:  runApprovals,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
}

func runApprovals(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(dataRoot)
	if err != nil {
		return err
	}
	defer rt.close()

	if !rt.cfg.ApprovalsEnabled() {
		return fmt.Errorf("the approvals server is disabled in %s", rt.cfg.SettingsPath())
	}

	settings := approvals.DefaultSettings()
	settings.Host = rt.cfg.Settings.Approvals.Host
	settings.Port = rt.cfg.Settings.Approvals.Port

	server := approvals.NewServer(settings, rt.store, approvals.WithLogger(rt.journal))
	if err := server.Start(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("approvals server listening on %s\n", server.Addr())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case <-cmd.Context().Done():
	}
	return server.Shutdown(nil)
}
