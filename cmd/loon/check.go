package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		conn   connFlags
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "check [JOBID]",
		Short: "Query the PBS queue status on the active host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = args[0]
			}

			if dryRun {
				client, err := a.clientForDryRun()
				if err != nil {
					return err
				}
				_, _, sub := a.toolchain(client)
				_, err = sub.Check(jobID, true)
				return err
			}

			client, err := a.connect(conn.keyPath, conn.passphrase)
			if err != nil {
				return err
			}
			defer client.Close()

			_, _, sub := a.toolchain(client)
			_, err = sub.Check(jobID, false)
			return err
		},
	}

	conn.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
