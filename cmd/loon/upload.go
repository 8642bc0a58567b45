package main

import (
	"github.com/spf13/cobra"

	"loon/internal/dispatch"
	"loon/internal/transfer"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		dest string
		opts transfer.Options
	)

	cmd := &cobra.Command{
		Use:   "upload SOURCE...",
		Short: "Upload files or directories to the active host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// scp/rsync authenticate on their own; no session is opened
			// here. The in-protocol fallback is only reachable through
			// the run command, which owns a connection.
			client, err := a.clientForDryRun()
			if err != nil {
				return err
			}
			driver := transfer.NewDriver(client.Host(), client, a.log)
			return driver.Upload(args, dest, opts)
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", dispatch.DefaultWorkDir, "Destination directory on the active host")
	cmd.Flags().BoolVar(&opts.UseRsync, "rsync", false, "Use rsync instead of scp")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the command without running it")

	return cmd
}
