// internal/pbs/sub.go

package pbs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"loon/internal/apperr"
	"loon/internal/dispatch"
	"loon/internal/ssh"
	"loon/internal/transfer"
	"loon/internal/utils"
)

// Submitter hands job files to the queueing command, either on this
// machine or on the active host through the dispatcher.
type Submitter struct {
	client *ssh.Client
	runner *dispatch.Runner
	driver *transfer.Driver
	log    *logrus.Entry
	out    io.Writer

	execLocal func(command string) error
}

func NewSubmitter(client *ssh.Client, runner *dispatch.Runner, driver *transfer.Driver, log *logrus.Entry) *Submitter {
	return &Submitter{
		client:    client,
		runner:    runner,
		driver:    driver,
		log:       log,
		out:       os.Stdout,
		execLocal: runShell,
	}
}

func runShell(command string) error {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Submit queues every matching job file and returns the list of files it
// submitted (or would submit, under dry-run).
func (s *Submitter) Submit(tasks []string, remote bool, workdir string, dryRun bool) ([]string, error) {
	fmt.Fprintln(s.out, "NOTE: PBS files must use LF line endings (Unix), not CRLF (Windows)")
	fmt.Fprintln(s.out, "====================================================")

	if remote {
		return s.submitRemote(tasks, workdir, dryRun)
	}
	return s.submitLocal(tasks, workdir, dryRun)
}

// submitRemote lists the matching remote files over SFTP (directories
// filtered out) and queues them in one batched channel command.
func (s *Submitter) submitRemote(tasks []string, workdir string, dryRun bool) ([]string, error) {
	files, err := s.client.GlobRemote(tasks)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperr.Newf(apperr.MissingFileError,
			"no job files match %s on the remote host", strings.Join(tasks, " "))
	}
	s.log.Infof("remote job files: %s", strings.Join(files, " "))

	if workdir == "" {
		workdir = dispatch.DefaultWorkDir
	}
	command := fmt.Sprintf("cd %s; for i in %s; do qsub $i; done", workdir, strings.Join(files, " "))
	if dryRun {
		fmt.Fprintln(s.out, command)
		return files, nil
	}
	s.log.Infof("executing: %s", command)
	if _, err := s.runner.Run([]string{command}, dispatch.Options{}); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Submitter) submitLocal(tasks []string, workdir string, dryRun bool) ([]string, error) {
	if workdir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, apperr.New(apperr.ConfigError, "failed to get working directory", err)
		}
		workdir = cwd
	}

	var files []string
	for _, pattern := range tasks {
		matches, err := filepath.Glob(utils.ExpandUser(pattern))
		if err != nil {
			return nil, apperr.New(apperr.MissingFileError,
				fmt.Sprintf("bad pattern %s", pattern), err)
		}
		if len(matches) == 0 {
			return nil, apperr.Newf(apperr.MissingFileError,
				"file %s does not exist", pattern)
		}
		for _, f := range matches {
			if utils.IsDir(f) {
				fmt.Fprintf(s.out,
					"Warning: directory %s is detected, anything in it will be ignored\n", f)
				continue
			}
			if !utils.IsFile(f) {
				return nil, apperr.Newf(apperr.MissingFileError, "file %s does not exist", f)
			}
			files = append(files, f)

			command := "cd " + workdir + ";qsub " + f
			if dryRun {
				fmt.Fprintln(s.out, command)
				continue
			}
			s.log.Infof("executing: %s", command)
			if err := s.execLocal(command); err != nil {
				code := 1
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					code = exitErr.ExitCode()
				}
				return nil, apperr.New(apperr.RemoteCommandError,
					fmt.Sprintf("failed to submit %s", f), err).WithCode(code)
			}
		}
	}
	return files, nil
}

// Deploy uploads a directory of job files to the active host and submits
// every *.pbs inside it.
func (s *Submitter) Deploy(source, destination string, useRsync, dryRun bool) error {
	if destination == "" {
		destination = dispatch.DefaultWorkDir
	}
	if dryRun {
		fmt.Fprintf(s.out, "=> Would deploy %s to %s on %s\n",
			source, destination, s.client.Host().Addr())
		return nil
	}
	if !utils.IsDir(source) {
		return apperr.Newf(apperr.MissingFileError, "directory %s does not exist", source)
	}
	if err := s.driver.Upload([]string{source}, destination, transfer.Options{UseRsync: useRsync}); err != nil {
		return err
	}
	_, err := s.Submit([]string{destination + "/*.pbs"}, true, destination, false)
	return err
}

// Check queries the queue status of one job, or of all jobs when jobID
// is empty.
func (s *Submitter) Check(jobID string, dryRun bool) (string, error) {
	command := "qstat"
	if jobID != "" {
		command += " " + jobID
	}
	if dryRun {
		fmt.Fprintf(s.out, "=> Would run %s on %s\n", command, s.client.Host().Addr())
		return "", nil
	}
	return s.runner.Run([]string{command}, dispatch.Options{})
}
