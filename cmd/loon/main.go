package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"loon/internal/apperr"
	"loon/internal/config"
	"loon/internal/dispatch"
	"loon/internal/models"
	"loon/internal/pbs"
	"loon/internal/ssh"
	"loon/internal/transfer"
)

var (
	version = "dev"
)

// app carries the pieces every subcommand needs: the registry manager
// and a configured logger.
type app struct {
	configPath string
	verbose    bool
	log        *logrus.Entry
}

func (a *app) setup() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if a.verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	a.log = logger.WithField("component", "loon")
}

// manager loads the host registry.
func (a *app) manager() (*config.Manager, error) {
	m := config.NewManager(a.configPath)
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// activeHost resolves the current execution target.
func (a *app) activeHost() (models.HostRecord, error) {
	m, err := a.manager()
	if err != nil {
		return models.HostRecord{}, err
	}
	if !m.HasActive() {
		return models.HostRecord{}, apperr.Newf(apperr.ConfigError,
			"no active host is configured, add one with the add command")
	}
	return m.Active(), nil
}

// connect opens the authenticated session against the active host.
// Callers must Close the returned client on every exit path.
func (a *app) connect(keyPath, passphrase string) (*ssh.Client, error) {
	host, err := a.activeHost()
	if err != nil {
		return nil, err
	}
	client := ssh.NewClient(host, a.log)
	if err := client.Connect(keyPath, passphrase); err != nil {
		return nil, err
	}
	return client, nil
}

// clientForDryRun binds a client to the active host without dialing;
// dry-run paths only need the host record for display.
func (a *app) clientForDryRun() (*ssh.Client, error) {
	host, err := a.activeHost()
	if err != nil {
		return nil, err
	}
	return ssh.NewClient(host, a.log), nil
}

// toolchain builds the dispatcher stack over an open client.
func (a *app) toolchain(client *ssh.Client) (*transfer.Driver, *dispatch.Runner, *pbs.Submitter) {
	driver := transfer.NewDriver(client.Host(), client, a.log)
	runner := dispatch.NewRunner(client, driver, a.log)
	submitter := pbs.NewSubmitter(client, runner, driver, a.log)
	return driver, runner, submitter
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "loon",
		Short:         "Remote host roster and PBS batch companion",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the host registry file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newAddCmd(a),
		newDeleteCmd(a),
		newSwitchCmd(a),
		newRenameCmd(a),
		newListCmd(a),
		newRunCmd(a),
		newUploadCmd(a),
		newDownloadCmd(a),
		newShellCmd(a),
		newPbsGenCmd(a),
		newPbsTempCmd(a),
		newPbsExampleCmd(a),
		newSubCmd(a),
		newDeployCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperr.ExitCode(err))
	}
}
