// internal/transfer/transfer.go

// Package transfer moves files between the local machine and the active
// host by shelling out to scp or rsync, mirroring the external tool's
// exit code on failure.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	scp "github.com/bramvdbogaerde/go-scp"
	"github.com/sirupsen/logrus"

	"loon/internal/apperr"
	"loon/internal/models"
	loonssh "loon/internal/ssh"
	"loon/internal/utils"
)

// Options selects the transfer tool and dry-run behavior.
type Options struct {
	UseRsync bool
	DryRun   bool
}

type Driver struct {
	host models.HostRecord
	log  *logrus.Entry
	out  io.Writer

	// client is only needed for the in-protocol fallback used when the
	// scp binary is not installed.
	client *loonssh.Client

	runCommand func(name string, args []string) error
	lookPath   func(file string) (string, error)
}

func NewDriver(host models.HostRecord, client *loonssh.Client, log *logrus.Entry) *Driver {
	return &Driver{
		host:       host,
		log:        log,
		out:        os.Stdout,
		client:     client,
		runCommand: runInherited,
		lookPath:   exec.LookPath,
	}
}

func runInherited(name string, args []string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// remoteTarget renders user@host:path for scp/rsync arguments.
func (d *Driver) remoteTarget(path string) string {
	return fmt.Sprintf("%s@%s:%s", d.host.Username, d.host.Address, path)
}

// asDir forces a trailing separator so scp/rsync treat the destination
// as a directory.
func asDir(path string) string {
	if !strings.HasSuffix(path, "/") {
		return path + "/"
	}
	return path
}

// UploadArgs builds the argv for uploading sources into the remote
// destination directory.
func (d *Driver) UploadArgs(sources []string, destination string, useRsync bool) (string, []string) {
	destination = asDir(destination)
	expanded := make([]string, len(sources))
	for i, src := range sources {
		expanded[i] = utils.ExpandUser(src)
	}
	if useRsync {
		args := []string{"-azP", "-e", fmt.Sprintf("ssh -p %d", d.host.Port)}
		args = append(args, expanded...)
		args = append(args, d.remoteTarget(destination))
		return "rsync", args
	}
	args := []string{"-pr", "-P", fmt.Sprintf("%d", d.host.Port)}
	args = append(args, expanded...)
	args = append(args, d.remoteTarget(destination))
	return "scp", args
}

// DownloadArgs builds the argv for downloading remote sources into the
// local destination directory.
func (d *Driver) DownloadArgs(sources []string, destination string, useRsync bool) (string, []string) {
	destination = asDir(utils.ExpandUser(destination))
	if useRsync {
		args := []string{"-azP", "-e", fmt.Sprintf("ssh -p %d", d.host.Port)}
		for _, src := range sources {
			args = append(args, d.remoteTarget(src))
		}
		args = append(args, destination)
		return "rsync", args
	}
	args := []string{"-pr", "-P", fmt.Sprintf("%d", d.host.Port)}
	for _, src := range sources {
		args = append(args, d.remoteTarget(src))
	}
	args = append(args, destination)
	return "scp", args
}

func CommandLine(name string, args []string) string {
	return name + " " + strings.Join(args, " ")
}

func (d *Driver) checkRsync(useRsync bool) error {
	if useRsync && runtime.GOOS == "windows" {
		return apperr.Newf(apperr.TransferError, "--rsync is disabled on Windows, please don't use it")
	}
	return nil
}

// Upload copies local sources into the remote destination directory.
func (d *Driver) Upload(sources []string, destination string, opts Options) error {
	if err := d.checkRsync(opts.UseRsync); err != nil {
		return err
	}
	name, args := d.UploadArgs(sources, destination, opts.UseRsync)
	if opts.DryRun {
		fmt.Fprintf(d.out, "=> Would run: %s\n", CommandLine(name, args))
		return nil
	}

	if !opts.UseRsync {
		if _, err := d.lookPath(name); err != nil {
			d.log.Debugf("scp binary not found, trying in-protocol copy")
			return d.uploadNative(sources, asDir(destination))
		}
	}

	fmt.Fprintf(d.out, "=> Starting upload...\n\n")
	return d.run(name, args, "uploading")
}

// Download copies remote sources into the local destination directory,
// creating it when missing.
func (d *Driver) Download(sources []string, destination string, opts Options) error {
	if err := d.checkRsync(opts.UseRsync); err != nil {
		return err
	}
	name, args := d.DownloadArgs(sources, destination, opts.UseRsync)
	if opts.DryRun {
		fmt.Fprintf(d.out, "=> Would run: %s\n", CommandLine(name, args))
		return nil
	}

	if err := utils.EnsureDir(utils.ExpandUser(destination)); err != nil {
		return apperr.New(apperr.TransferError, "failed to create local destination", err)
	}

	fmt.Fprintf(d.out, "=> Starting download...\n\n")
	return d.run(name, args, "downloading")
}

func (d *Driver) run(name string, args []string, verb string) error {
	d.log.Infof("running %s", CommandLine(name, args))
	start := time.Now()
	if err := d.runCommand(name, args); err != nil {
		code := 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		d.log.Infof("status code: %d", code)
		return apperr.New(apperr.TransferError,
			"an error occurred, please check the info", err).WithCode(code)
	}
	fmt.Fprintf(d.out, "\n=> Finished %s in %ds\n", verb, int(time.Since(start).Seconds()))
	return nil
}

// uploadNative copies regular files over the already-authenticated SSH
// connection when no scp binary is installed locally.
func (d *Driver) uploadNative(sources []string, destination string) error {
	if d.client == nil || !d.client.Connected() {
		return apperr.Newf(apperr.TransferError,
			"scp binary not found and no SSH connection available")
	}

	fmt.Fprintf(d.out, "=> Starting upload (in-protocol)...\n\n")
	start := time.Now()
	for _, src := range sources {
		src = utils.ExpandUser(src)
		if !utils.IsFile(src) {
			return apperr.Newf(apperr.TransferError,
				"in-protocol copy supports regular files only: %s", src)
		}
		if err := d.copyFileNative(src, destination); err != nil {
			return err
		}
	}
	fmt.Fprintf(d.out, "\n=> Finished uploading in %ds\n", int(time.Since(start).Seconds()))
	return nil
}

func (d *Driver) copyFileNative(src, destination string) error {
	f, err := os.Open(src)
	if err != nil {
		return apperr.New(apperr.TransferError, "failed to open local file", err)
	}
	defer f.Close()

	scpClient, err := scp.NewClientBySSH(d.client.GetClient())
	if err != nil {
		return apperr.New(apperr.TransferError, "failed to create scp session", err)
	}
	defer scpClient.Close()

	remotePath := destination + baseName(src)
	d.log.Debugf("copying %s to %s", src, remotePath)
	if err := scpClient.CopyFromFile(context.Background(), *f, remotePath, "0644"); err != nil {
		return apperr.New(apperr.TransferError,
			fmt.Sprintf("failed to copy %s", src), err)
	}
	return nil
}

func baseName(path string) string {
	path = utils.ToRemotePath(path)
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
