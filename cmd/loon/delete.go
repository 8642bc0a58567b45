package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loon/internal/models"
)

// lookupFlags resolve a record by alias (positional) or by the full
// (username, address, port) tuple when no alias is given.
type lookupFlags struct {
	username string
	address  string
	port     int
}

func (l *lookupFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&l.username, "username", "u", "", "Username of the host (when no alias is given)")
	cmd.Flags().StringVarP(&l.address, "address", "a", "", "Address of the host (when no alias is given)")
	cmd.Flags().IntVarP(&l.port, "port", "p", models.DefaultPort, "SSH port of the host")
}

func aliasArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func newDeleteCmd(a *app) *cobra.Command {
	var (
		lookup lookupFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "delete [ALIAS]",
		Short: "Delete a remote host from the roster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := aliasArg(args)
			if dryRun {
				fmt.Printf("=> Would delete host %s%s@%s:%d\n",
					alias, lookup.username, lookup.address, lookup.port)
				return nil
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			removed, err := m.Delete(alias, lookup.username, lookup.address, lookup.port)
			if err != nil {
				return err
			}
			fmt.Printf("=> Removed %s\n", removed.String())
			if m.HasActive() {
				fmt.Printf("=> Active host is now %s\n", m.Active().Alias)
			} else {
				fmt.Println("=> No active host left")
			}
			return nil
		},
	}

	lookup.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
