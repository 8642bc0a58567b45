package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loon/internal/ui"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all hosts in the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			fmt.Println(ui.RenderHosts(m.Registry()))
			return nil
		},
	}
}
