package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loon/internal/ui"
)

func newSwitchCmd(a *app) *cobra.Command {
	var (
		lookup lookupFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "switch [ALIAS]",
		Short: "Switch the active host",
		Long: "Switch the active host. Without an alias or lookup flags an " +
			"interactive picker over the roster is opened.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := aliasArg(args)
			if dryRun {
				fmt.Printf("=> Would switch to %s%s@%s:%d\n",
					alias, lookup.username, lookup.address, lookup.port)
				return nil
			}

			m, err := a.manager()
			if err != nil {
				return err
			}

			if alias == "" && lookup.username == "" && lookup.address == "" {
				host, ok, err := ui.PickHost(m.Registry())
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				alias = host.Alias
			}

			host, err := m.Switch(alias, lookup.username, lookup.address, lookup.port)
			if err != nil {
				return err
			}
			fmt.Printf("=> %s activated.\n", host.Alias)
			return nil
		},
	}

	lookup.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
