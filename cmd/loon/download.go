package main

import (
	"github.com/spf13/cobra"

	"loon/internal/transfer"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		dest string
		opts transfer.Options
	)

	cmd := &cobra.Command{
		Use:   "download SOURCE...",
		Short: "Download files from the active host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.clientForDryRun()
			if err != nil {
				return err
			}
			driver := transfer.NewDriver(client.Host(), client, a.log)
			return driver.Download(args, dest, opts)
		},
	}

	cmd.Flags().StringVarP(&dest, "dest", "d", ".", "Local destination directory")
	cmd.Flags().BoolVar(&opts.UseRsync, "rsync", false, "Use rsync instead of scp")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the command without running it")

	return cmd
}
