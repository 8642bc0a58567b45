package transfer

import (
	"bytes"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loon/internal/apperr"
	"loon/internal/models"
)

var testHost = models.HostRecord{Alias: "lab", Username: "alice", Address: "10.0.0.5", Port: 2222}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testDriver(run func(name string, args []string) error) (*Driver, *bytes.Buffer) {
	var out bytes.Buffer
	d := &Driver{
		host:       testHost,
		log:        testLog(),
		out:        &out,
		runCommand: run,
		lookPath:   func(file string) (string, error) { return "/usr/bin/" + file, nil },
	}
	return d, &out
}

func TestUploadArgsScp(t *testing.T) {
	d, _ := testDriver(nil)
	name, args := d.UploadArgs([]string{"a.sh", "b.sh"}, "/tmp", false)
	assert.Equal(t, "scp", name)
	assert.Equal(t, []string{"-pr", "-P", "2222", "a.sh", "b.sh", "alice@10.0.0.5:/tmp/"}, args)
}

func TestUploadArgsRsync(t *testing.T) {
	d, _ := testDriver(nil)
	name, args := d.UploadArgs([]string{"data/"}, "/work", true)
	assert.Equal(t, "rsync", name)
	assert.Equal(t, []string{"-azP", "-e", "ssh -p 2222", "data/", "alice@10.0.0.5:/work/"}, args)
}

func TestDownloadArgsScp(t *testing.T) {
	d, _ := testDriver(nil)
	name, args := d.DownloadArgs([]string{"/tmp/out.txt", "/tmp/log.txt"}, "results", false)
	assert.Equal(t, "scp", name)
	assert.Equal(t, []string{
		"-pr", "-P", "2222",
		"alice@10.0.0.5:/tmp/out.txt", "alice@10.0.0.5:/tmp/log.txt",
		"results/",
	}, args)
}

func TestDownloadArgsRsync(t *testing.T) {
	d, _ := testDriver(nil)
	name, args := d.DownloadArgs([]string{"/tmp/out.txt"}, "results/", true)
	assert.Equal(t, "rsync", name)
	assert.Equal(t, []string{"-azP", "-e", "ssh -p 2222", "alice@10.0.0.5:/tmp/out.txt", "results/"}, args)
}

func TestCommandLine(t *testing.T) {
	assert.Equal(t, "scp -pr a b", CommandLine("scp", []string{"-pr", "a", "b"}))
}

func TestUploadDryRun(t *testing.T) {
	called := false
	d, out := testDriver(func(name string, args []string) error {
		called = true
		return nil
	})

	err := d.Upload([]string{"a.sh"}, "/tmp", Options{DryRun: true})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "=> Would run: scp -pr -P 2222 a.sh alice@10.0.0.5:/tmp/\n", out.String())
}

func TestUploadRunsScp(t *testing.T) {
	var gotName string
	var gotArgs []string
	d, out := testDriver(func(name string, args []string) error {
		gotName = name
		gotArgs = args
		return nil
	})

	err := d.Upload([]string{"a.sh"}, "/tmp", Options{})
	require.NoError(t, err)
	assert.Equal(t, "scp", gotName)
	assert.Equal(t, []string{"-pr", "-P", "2222", "a.sh", "alice@10.0.0.5:/tmp/"}, gotArgs)
	assert.Contains(t, out.String(), "=> Finished uploading in")
}

func TestUploadMirrorsExitCode(t *testing.T) {
	// exec.ExitError cannot be fabricated directly; run a real command
	// that exits non-zero to obtain one.
	realErr := exec.Command("sh", "-c", "exit 12").Run()
	require.Error(t, realErr)

	d, _ := testDriver(func(name string, args []string) error {
		return realErr
	})

	err := d.Upload([]string{"a.sh"}, "/tmp", Options{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TransferError))
	assert.Equal(t, 12, apperr.ExitCode(err))
}

func TestUploadDefaultExitCode(t *testing.T) {
	d, _ := testDriver(func(name string, args []string) error {
		return errors.New("exec: not started")
	})

	err := d.Upload([]string{"a.sh"}, "/tmp", Options{})
	require.Error(t, err)
	assert.Equal(t, 1, apperr.ExitCode(err))
}

func TestUploadNativeWithoutConnection(t *testing.T) {
	d, _ := testDriver(nil)
	d.lookPath = func(file string) (string, error) { return "", exec.ErrNotFound }

	err := d.Upload([]string{"a.sh"}, "/tmp", Options{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.TransferError))
	assert.Contains(t, err.Error(), "scp binary not found")
}

func TestDownloadCreatesDestination(t *testing.T) {
	dest := t.TempDir() + "/nested/results"
	d, _ := testDriver(func(name string, args []string) error { return nil })

	err := d.Download([]string{"/tmp/out.txt"}, dest, Options{})
	require.NoError(t, err)
	assert.DirExists(t, dest)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a.sh", baseName("dir/a.sh"))
	assert.Equal(t, "a.sh", baseName("a.sh"))
}
