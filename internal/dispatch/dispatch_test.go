package dispatch

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loon/internal/apperr"
	"loon/internal/transfer"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// fakeExecutor answers each Execute call with the next canned reply and
// records the commands it was given.
type fakeExecutor struct {
	commands []string
	replies  []string
	err      error
}

func (f *fakeExecutor) Execute(command string, echo io.Writer) (string, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return "", f.err
	}
	var reply string
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	if echo != nil {
		echo.Write([]byte(reply))
	}
	return reply, nil
}

type upload struct {
	sources []string
	dest    string
	opts    transfer.Options
}

type fakeUploader struct {
	uploads []upload
	err     error
}

func (f *fakeUploader) Upload(sources []string, destination string, opts transfer.Options) error {
	f.uploads = append(f.uploads, upload{sources: sources, dest: destination, opts: opts})
	return f.err
}

func testRunner(exec *fakeExecutor, driver *fakeUploader) *Runner {
	return &Runner{exec: exec, driver: driver, log: testLog(), out: io.Discard}
}

func TestBuildCommandChmodRun(t *testing.T) {
	got := buildCommand([]string{"/tmp/a.sh", "/tmp/b.sh"}, "")
	assert.Equal(t, "chmod u+x /tmp/a.sh;chmod u+x /tmp/b.sh;/tmp/a.sh;/tmp/b.sh", got)
}

func TestBuildCommandWithInterpreter(t *testing.T) {
	got := buildCommand([]string{"/tmp/a.py", "/tmp/b.py"}, "python3")
	assert.Equal(t, "python3 /tmp/a.py;python3 /tmp/b.py", got)
}

func TestHasWildcard(t *testing.T) {
	assert.True(t, hasWildcard([]string{"/tmp/a.sh", "/tmp/*.sh"}))
	assert.True(t, hasWildcard([]string{"/tmp/a?.sh"}))
	assert.True(t, hasWildcard([]string{"/tmp/{}.sh"}))
	assert.False(t, hasWildcard([]string{"/tmp/a.sh", "/tmp/b.sh"}))
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a.sh", "b.sh"}, splitLines("a.sh\nb.sh\n"))
	assert.Equal(t, []string{"a.sh"}, splitLines("  a.sh  \n\n"))
	assert.Nil(t, splitLines(""))
}

func TestResolveBasenames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.sh", "two.sh"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	var out bytes.Buffer
	r := &Runner{log: testLog(), out: &out}

	names, err := r.resolveBasenames([]string{filepath.Join(dir, "*")})
	require.NoError(t, err)
	assert.Equal(t, []string{"one.sh", "two.sh"}, names)
	assert.Contains(t, out.String(), "Warning: directory")
}

func TestResolveBasenamesMissing(t *testing.T) {
	r := &Runner{log: testLog(), out: io.Discard}

	_, err := r.resolveBasenames([]string{filepath.Join(t.TempDir(), "nope-*.sh")})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.MissingFileError))
}

func TestRunInline(t *testing.T) {
	exec := &fakeExecutor{replies: []string{"hi\n"}}
	r := testRunner(exec, nil)

	out, err := r.Run([]string{"echo", "hi"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)
	assert.Equal(t, []string{"echo hi"}, exec.commands)
}

func TestRunRemoteFiles(t *testing.T) {
	exec := &fakeExecutor{replies: []string{"done\n"}}
	r := testRunner(exec, nil)

	out, err := r.Run([]string{"/opt/a.sh", "/opt/b.sh"}, Options{RunFile: true, Remote: true})
	require.NoError(t, err)
	assert.Equal(t, "done\n", out)
	assert.Equal(t, []string{
		"chmod u+x /opt/a.sh;chmod u+x /opt/b.sh;/opt/a.sh;/opt/b.sh",
	}, exec.commands)
}

func TestRunRemoteFilesWildcardExpansion(t *testing.T) {
	exec := &fakeExecutor{replies: []string{"/opt/a.sh\n/opt/b.sh\n", "ok\n"}}
	r := testRunner(exec, nil)

	out, err := r.Run([]string{"/opt/*.sh"}, Options{RunFile: true, Remote: true, Prog: "bash"})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, []string{
		"ls /opt/*.sh",
		"bash /opt/a.sh;bash /opt/b.sh",
	}, exec.commands)
}

func TestRunRemoteFilesExecuteError(t *testing.T) {
	exec := &fakeExecutor{err: apperr.Newf(apperr.RemoteCommandError, "boom")}
	r := testRunner(exec, nil)

	_, err := r.Run([]string{"/opt/a.sh"}, Options{RunFile: true, Remote: true})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.RemoteCommandError))
}

func TestRunLocalFiles(t *testing.T) {
	dir := t.TempDir()
	scripts := make([]string, 0, 2)
	for _, name := range []string{"one.sh", "two.sh"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
		scripts = append(scripts, path)
	}

	exec := &fakeExecutor{replies: []string{"ran\n"}}
	driver := &fakeUploader{}
	r := testRunner(exec, driver)

	out, err := r.Run(scripts, Options{RunFile: true, WorkDir: "/work"})
	require.NoError(t, err)
	assert.Equal(t, "ran\n", out)

	require.Len(t, driver.uploads, 1)
	assert.Equal(t, scripts, driver.uploads[0].sources)
	assert.Equal(t, "/work", driver.uploads[0].dest)

	assert.Equal(t, []string{
		"chmod u+x /work/one.sh;chmod u+x /work/two.sh;/work/one.sh;/work/two.sh",
	}, exec.commands)
}

func TestRunLocalFilesWithDataDir(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))
	data := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(data, 0755))

	exec := &fakeExecutor{}
	driver := &fakeUploader{}
	r := testRunner(exec, driver)

	_, err := r.Run([]string{script}, Options{RunFile: true, DataDir: data, WorkDir: "/work", UseRsync: true})
	require.NoError(t, err)

	require.Len(t, driver.uploads, 2)
	assert.Equal(t, []string{script}, driver.uploads[0].sources)
	assert.Equal(t, []string{data}, driver.uploads[1].sources)
	assert.True(t, driver.uploads[0].opts.UseRsync)
}

func TestRunLocalFilesSingleDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "batch")
	require.NoError(t, os.Mkdir(dir, 0755))
	for _, name := range []string{"a.sh", "b.sh"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"), 0755))
	}

	exec := &fakeExecutor{}
	driver := &fakeUploader{}
	r := testRunner(exec, driver)

	_, err := r.Run([]string{dir}, Options{RunFile: true, WorkDir: "/work", Prog: "sh"})
	require.NoError(t, err)

	// The uploaded directory is recreated under the workdir, so the
	// scripts run from /work/batch.
	assert.Equal(t, []string{
		"sh /work/batch/a.sh;sh /work/batch/b.sh",
	}, exec.commands)
}

func TestRunLocalFilesUploadError(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "job.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0755))

	exec := &fakeExecutor{}
	driver := &fakeUploader{err: apperr.Newf(apperr.TransferError, "scp failed")}
	r := testRunner(exec, driver)

	_, err := r.Run([]string{script}, Options{RunFile: true})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TransferError))
	assert.Empty(t, exec.commands)
}

func TestRunLocalFilesMissingInput(t *testing.T) {
	exec := &fakeExecutor{}
	driver := &fakeUploader{}
	r := testRunner(exec, driver)

	_, err := r.Run([]string{filepath.Join(t.TempDir(), "nope.sh")}, Options{RunFile: true})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.MissingFileError))
}

func TestRunDryRun(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{log: testLog(), out: &out}

	got, err := r.Run([]string{"echo", "hi"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "=> Would run commands: echo hi\n", out.String())

	out.Reset()
	_, err = r.Run([]string{"a.sh"}, Options{DryRun: true, RunFile: true})
	require.NoError(t, err)
	assert.Equal(t, "=> Would run files: a.sh\n", out.String())
}
