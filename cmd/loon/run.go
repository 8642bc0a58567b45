package main

import (
	"github.com/spf13/cobra"

	"loon/internal/dispatch"
)

// connFlags are shared by every subcommand that opens a session.
type connFlags struct {
	keyPath    string
	passphrase string
}

func (c *connFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.keyPath, "key", "~/.ssh/id_rsa", "Path to the private key file")
	cmd.Flags().StringVar(&c.passphrase, "passphrase", "", "Passphrase of the private key")
}

func newRunCmd(a *app) *cobra.Command {
	var (
		conn    connFlags
		opts    dispatch.Options
		dataDir string
	)

	cmd := &cobra.Command{
		Use:   "run [flags] COMMAND...",
		Short: "Run commands or scripts on the active host",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.DataDir = dataDir

			if opts.DryRun {
				// The dispatcher prints the would-be action itself;
				// no connection is needed for that.
				client, err := a.clientForDryRun()
				if err != nil {
					return err
				}
				runner := dispatch.NewRunner(client, nil, a.log)
				_, err = runner.Run(args, opts)
				return err
			}

			client, err := a.connect(conn.keyPath, conn.passphrase)
			if err != nil {
				return err
			}
			defer client.Close()

			_, runner, _ := a.toolchain(client)
			_, err = runner.Run(args, opts)
			return err
		},
	}

	conn.register(cmd)
	cmd.Flags().BoolVarP(&opts.RunFile, "file", "f", false, "Treat inputs as script files")
	cmd.Flags().BoolVarP(&opts.Remote, "remote", "r", false, "Script files already live on the active host")
	cmd.Flags().StringVar(&dataDir, "data", "", "Data directory uploaded next to local scripts")
	cmd.Flags().StringVar(&opts.WorkDir, "dir", dispatch.DefaultWorkDir, "Remote directory for uploaded scripts")
	cmd.Flags().StringVar(&opts.Prog, "prog", "", "Interpreter used to run the scripts")
	cmd.Flags().BoolVar(&opts.UseRsync, "rsync", false, "Upload with rsync instead of scp")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the action without performing it")

	return cmd
}
