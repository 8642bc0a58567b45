package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loon/internal/models"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		port   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "add ALIAS USERNAME ADDRESS",
		Short: "Add a remote host to the roster",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := models.HostRecord{
				Alias:    args[0],
				Username: args[1],
				Address:  args[2],
				Port:     port,
			}
			if dryRun {
				fmt.Printf("=> Would add %s\n", host.String())
				return nil
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			added, err := m.Add(host)
			if err != nil {
				return err
			}
			if !added {
				fmt.Println("=> Input host exists. Will not change.")
				return nil
			}
			fmt.Println("=> Added successfully!")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", models.DefaultPort, "SSH port")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
