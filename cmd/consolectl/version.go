package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"m365console/internal/common/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", toolName, version.Get())
		},
	}
}
