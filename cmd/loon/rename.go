package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenameCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a host alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				fmt.Printf("=> Would rename %s to %s\n", args[0], args[1])
				return nil
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			host, err := m.Rename(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("=> Renamed to %s\n", host.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
