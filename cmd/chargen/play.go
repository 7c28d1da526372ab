package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mistvale/chargen/internal/application"
	"github.com/mistvale/chargen/internal/pipeline"
	"github.com/mistvale/chargen/internal/stage"
	"github.com/mistvale/chargen/internal/store"
	"github.com/mistvale/chargen/internal/tui"
)

const defaultApplicationLimit = 1

var playCmd = &cobra.Command{
	Use:   "play <account>",
	Short: "Start or resume a character application",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	account := args[0]
	rt, err := loadRuntime(dataRoot)
	if err != nil {
		return err
	}
	defer rt.close()

	// Content edits land mid-run; sessions opened before a reload keep
	// their snapshot.
	go func() {
		if err := rt.provider.Watch(cmd.Context()); err != nil {
			rt.journal.Warn("content watcher stopped: %v", err)
		}
	}()

	if err := rt.store.EnsureAccount(account, defaultApplicationLimit); err != nil {
		return err
	}
	rec, err := rt.store.InProgressApplication(account)
	if errors.Is(err, store.ErrNotFound) {
		rec = application.New(account)
		if err := rt.store.SaveApplication(rec); err != nil {
			return err
		}
		rt.journal.Info("application %s opened by %s", rec.ID, account)
	} else if err != nil {
		return err
	}

	driver := pipeline.NewDriver(stage.Default(), rt.registry, rt.store, rec,
		pipeline.WithJournal(rt.journal),
		pipeline.WithSaver(rt.store),
	)
	title := fmt.Sprintf("chargen — %s", account)
	return tui.Run(tui.NewConsole(title, driver.HandleLine, driver.Menu()))
}
