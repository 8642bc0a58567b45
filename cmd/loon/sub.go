package main

import (
	"github.com/spf13/cobra"

	"loon/internal/pbs"
)

func newSubCmd(a *app) *cobra.Command {
	var (
		conn    connFlags
		remote  bool
		workdir string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "sub TASK...",
		Short: "Submit job files to the PBS queue",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !remote {
				// Local submission shells out to qsub directly and
				// never touches the active host.
				sub := pbs.NewSubmitter(nil, nil, nil, a.log)
				_, err := sub.Submit(args, false, workdir, dryRun)
				return err
			}

			// Remote submission lists the job files over SFTP even
			// under dry-run, so a connection is always required.
			client, err := a.connect(conn.keyPath, conn.passphrase)
			if err != nil {
				return err
			}
			defer client.Close()

			_, _, sub := a.toolchain(client)
			_, err = sub.Submit(args, true, workdir, dryRun)
			return err
		},
	}

	conn.register(cmd)
	cmd.Flags().BoolVarP(&remote, "remote", "r", false, "Job files live on the active host")
	cmd.Flags().StringVar(&workdir, "workdir", "", "Directory to submit from")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the qsub commands without running them")

	return cmd
}
