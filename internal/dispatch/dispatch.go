// internal/dispatch/dispatch.go

// Package dispatch turns user input (inline commands, local script files
// or remote script paths) into channel commands on the active host.
package dispatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"loon/internal/apperr"
	"loon/internal/transfer"
	"loon/internal/utils"
)

// DefaultWorkDir is where uploaded scripts land on the remote host.
const DefaultWorkDir = "/tmp"

// wildcardRe matches the glob glyphs expanded on the remote side.
var wildcardRe = regexp.MustCompile(`\*|\?|\{\}`)

// Options controls how inputs are interpreted and executed.
type Options struct {
	RunFile  bool   // inputs are script files, not a command
	Remote   bool   // script files already live on the active host
	DataDir  string // optional data directory uploaded next to local scripts
	WorkDir  string // remote directory for uploaded scripts
	Prog     string // interpreter to run the scripts with
	UseRsync bool
	DryRun   bool
}

// Executor runs one command over a channel on the active host.
// *ssh.Client is the production implementation.
type Executor interface {
	Execute(command string, echo io.Writer) (string, error)
}

// Uploader moves local files into a remote directory. *transfer.Driver
// is the production implementation.
type Uploader interface {
	Upload(sources []string, destination string, opts transfer.Options) error
}

type Runner struct {
	exec   Executor
	driver Uploader
	log    *logrus.Entry
	out    io.Writer
}

func NewRunner(exec Executor, driver Uploader, log *logrus.Entry) *Runner {
	return &Runner{
		exec:   exec,
		driver: driver,
		log:    log,
		out:    os.Stdout,
	}
}

// Run executes the inputs according to opts and returns the collected
// stdout. Any stderr output from the remote side fails the whole run.
func (r *Runner) Run(inputs []string, opts Options) (string, error) {
	if opts.DryRun {
		what := "commands:"
		if opts.RunFile {
			what = "files:"
		}
		fmt.Fprintf(r.out, "=> Would run %s %s\n", what, strings.Join(inputs, " "))
		return "", nil
	}
	if opts.WorkDir == "" {
		opts.WorkDir = DefaultWorkDir
	}

	if !opts.RunFile {
		return r.exec.Execute(strings.Join(inputs, " "), r.out)
	}
	if opts.Remote {
		return r.runRemoteFiles(inputs, opts)
	}
	return r.runLocalFiles(inputs, opts)
}

// runRemoteFiles executes script paths that already exist on the host,
// expanding glob patterns through a remote ls first.
func (r *Runner) runRemoteFiles(scripts []string, opts Options) (string, error) {
	r.log.Infof("remote scripts: %s", strings.Join(scripts, " "))

	if hasWildcard(scripts) {
		listing := make([]string, len(scripts))
		for i, s := range scripts {
			listing[i] = "ls " + s
		}
		out, err := r.exec.Execute(strings.Join(listing, ";"), nil)
		if err != nil {
			return "", err
		}
		scripts = splitLines(out)
	}

	command := buildCommand(scripts, opts.Prog)
	r.log.Infof("executing: %s", command)
	fmt.Fprintln(r.out, "=> Getting results:")
	return r.exec.Execute(command, r.out)
}

// runLocalFiles uploads local scripts (and the optional data directory)
// into the remote workdir and runs them there.
func (r *Runner) runLocalFiles(scripts []string, opts Options) (string, error) {
	r.log.Infof("local scripts: %s", strings.Join(scripts, " "))

	transferOpts := transfer.Options{UseRsync: opts.UseRsync}
	if err := r.driver.Upload(scripts, opts.WorkDir, transferOpts); err != nil {
		return "", err
	}
	if opts.DataDir != "" {
		if err := r.driver.Upload([]string{opts.DataDir}, opts.WorkDir, transferOpts); err != nil {
			return "", err
		}
	}

	workDir := opts.WorkDir
	// A single directory input runs everything inside it; the remote
	// workdir gains the directory's name because the upload recreated it.
	if len(scripts) == 1 && utils.IsDir(scripts[0]) {
		dir := strings.TrimSuffix(scripts[0], "/")
		workDir = workDir + "/" + filepath.Base(dir)
		matches, err := filepath.Glob(dir + "/*")
		if err != nil {
			return "", apperr.New(apperr.MissingFileError, "failed to expand directory", err)
		}
		scripts = matches
	}

	names, err := r.resolveBasenames(scripts)
	if err != nil {
		return "", err
	}
	r.log.Infof("resolved files: %s", strings.Join(names, " "))

	remote := make([]string, len(names))
	for i, name := range names {
		remote[i] = workDir + "/" + name
	}
	command := buildCommand(remote, opts.Prog)
	r.log.Infof("executing: %s", command)
	fmt.Fprintln(r.out, "=> Getting results:")
	return r.exec.Execute(command, r.out)
}

// resolveBasenames expands local globs and reduces the survivors to
// their basenames. Directories are skipped with a warning; a pattern
// matching nothing fails the run.
func (r *Runner) resolveBasenames(patterns []string) ([]string, error) {
	var names []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(utils.ExpandUser(pattern))
		if err != nil {
			return nil, apperr.New(apperr.MissingFileError,
				fmt.Sprintf("bad pattern %s", pattern), err)
		}
		if len(matches) == 0 {
			return nil, apperr.Newf(apperr.MissingFileError,
				"file %s does not exist", pattern)
		}
		for _, match := range matches {
			if utils.IsDir(match) {
				fmt.Fprintf(r.out,
					"Warning: directory %s is detected, anything in it will be ignored\n", match)
				continue
			}
			if !utils.IsFile(match) {
				return nil, apperr.Newf(apperr.MissingFileError,
					"file %s does not exist", match)
			}
			names = append(names, filepath.Base(match))
		}
	}
	return names, nil
}

// buildCommand joins scripts into a single ;-separated channel command,
// either chmod+run or interpreter-per-script.
func buildCommand(scripts []string, prog string) string {
	if prog == "" {
		chmods := make([]string, len(scripts))
		for i, s := range scripts {
			chmods[i] = "chmod u+x " + s
		}
		return strings.Join(chmods, ";") + ";" + strings.Join(scripts, ";")
	}
	runs := make([]string, len(scripts))
	for i, s := range scripts {
		runs[i] = prog + " " + s
	}
	return strings.Join(runs, ";")
}

func hasWildcard(inputs []string) bool {
	for _, in := range inputs {
		if wildcardRe.MatchString(in) {
			return true
		}
	}
	return false
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
