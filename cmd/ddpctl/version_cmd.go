package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/ddp-client/internal/version"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the ddpctl version",
		// Skip config loading.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "ddpctl %s (%s) %s\n", info.Version, info.Commit, info.GoVersion)
			return err
		},
	}
	return cmd
}
