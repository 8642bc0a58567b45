package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"loon/internal/ssh"
)

func newShellCmd(a *app) *cobra.Command {
	var conn connFlags

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive shell on the active host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.connect(conn.keyPath, conn.passphrase)
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Printf("Connected to %s\n", client.Host().String())

			shell, err := ssh.NewShell(client)
			if err != nil {
				return err
			}
			defer shell.Close()

			return shell.Run(os.Getenv("TERM"))
		},
	}

	conn.register(cmd)

	return cmd
}
