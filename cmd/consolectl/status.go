package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"m365console/internal/remediation"
)

func newStatusCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last saved repair session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := remediation.NewSnapshotStore(a.layout)
			snapshot, err := store.Load()
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no repair session recorded yet at %s", store.Path)
				}
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), snapshot)
			}
			printSession(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}
