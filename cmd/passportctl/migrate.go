package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"securitypassport/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the preferred table layout if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrations.Apply(cmd.Context(), getDB(cmd)); err != nil {
				return err
			}
			for _, name := range migrations.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		},
	}
}
