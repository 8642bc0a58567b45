package main

import (
	"github.com/spf13/cobra"
)

func newDeployCmd(a *app) *cobra.Command {
	var (
		conn     connFlags
		dest     string
		useRsync bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "deploy SOURCE",
		Short: "Upload a directory of job files and submit every *.pbs in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				client, err := a.clientForDryRun()
				if err != nil {
					return err
				}
				_, _, sub := a.toolchain(client)
				return sub.Deploy(args[0], dest, useRsync, true)
			}

			client, err := a.connect(conn.keyPath, conn.passphrase)
			if err != nil {
				return err
			}
			defer client.Close()

			_, _, sub := a.toolchain(client)
			return sub.Deploy(args[0], dest, useRsync, false)
		},
	}

	conn.register(cmd)
	cmd.Flags().StringVar(&dest, "dest", "", "Remote directory for the job files (default /tmp)")
	cmd.Flags().BoolVar(&useRsync, "rsync", false, "Upload with rsync instead of scp")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
