// internal/ssh/client.go

// Package ssh manages the authenticated session against the active host
// and the command channels opened on it.
package ssh

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"loon/internal/apperr"
	"loon/internal/models"
	"loon/internal/utils"
)

const dialTimeout = 10 * time.Second

// Client holds at most one authenticated connection to the active host.
// Reconnecting replaces the previous connection.
type Client struct {
	host       models.HostRecord
	client     *ssh.Client
	sftpClient *sftp.Client
	log        *logrus.Entry

	// promptPassword is swapped out in tests.
	promptPassword func(prompt string) (string, error)
}

func NewClient(host models.HostRecord, log *logrus.Entry) *Client {
	return &Client{
		host:           host,
		log:            log,
		promptPassword: readPassword,
	}
}

func (c *Client) Host() models.HostRecord {
	return c.host
}

func (c *Client) Connected() bool {
	return c.client != nil
}

// GetClient exposes the raw connection for subsystems that speak the
// protocol themselves (scp, sftp).
func (c *Client) GetClient() *ssh.Client {
	return c.client
}

// Connect dials the active host and authenticates, trying the private key
// first and falling back to an interactive password prompt.
func (c *Client) Connect(keyPath, passphrase string) error {
	if c.client != nil {
		c.Close()
	}

	auth, keyErr := keyAuth(utils.ExpandUser(keyPath), passphrase)
	if keyErr == nil {
		client, err := c.dial(auth)
		if err == nil {
			c.client = client
			return nil
		}
		// A socket-level failure will not get better with a password;
		// only auth rejections fall back to the prompt.
		if socketFailure(err) {
			return apperr.New(apperr.ConnectionError,
				fmt.Sprintf("failed to connect to %s", c.host.Addr()), err)
		}
		keyErr = err
	}
	c.log.Debugf("key auth unavailable: %v", keyErr)

	password, err := c.promptPassword(fmt.Sprintf(
		"No usable private key.\nEnter your password for %s: ", c.host.Username))
	if err != nil {
		return apperr.New(apperr.ConnectionError, "failed to read password", err)
	}
	client, err := c.dial(ssh.Password(password))
	if err != nil {
		return apperr.New(apperr.ConnectionError,
			fmt.Sprintf("failed to connect to %s", c.host.Addr()), err)
	}
	c.client = client
	return nil
}

// socketFailure reports whether err happened at the network level,
// before the server could accept or reject the credentials.
func socketFailure(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *Client) dial(auth ssh.AuthMethod) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User:            c.host.Username,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
	return ssh.Dial("tcp", c.host.Addr(), config)
}

func keyAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %v", err)
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %v", err)
	}
	return ssh.PublicKeys(signer), nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// Execute runs command on a fresh channel. Stderr is checked first: any
// stderr output fails the whole command and stdout is discarded. On
// success stdout is returned and, when echo is non-nil, written there.
func (c *Client) Execute(command string, echo io.Writer) (string, error) {
	if c.client == nil {
		return "", apperr.Newf(apperr.ConnectionError, "not connected")
	}
	session, err := c.client.NewSession()
	if err != nil {
		return "", apperr.New(apperr.ConnectionError, "failed to open channel", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	c.log.Debugf("executing: %s", command)
	runErr := session.Run(command)
	return readResult(stdout.Bytes(), stderr.Bytes(), runErr, echo)
}

// readResult applies the stderr-first contract shared by every channel
// command. Exit statuses are not interpreted: stderr bytes are the only
// failure signal, which keeps the channel protocol handling trivial.
func readResult(stdout, stderr []byte, runErr error, echo io.Writer) (string, error) {
	if len(stderr) > 0 {
		return "", apperr.Newf(apperr.RemoteCommandError,
			"an error is raised by remote host, please read the info:\n%s", string(stderr))
	}
	var exitErr *ssh.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return "", apperr.New(apperr.RemoteCommandError, "remote command failed", runErr)
	}
	if echo != nil {
		echo.Write(stdout)
	}
	return string(stdout), nil
}

// Sftp lazily opens an SFTP subsystem on the current connection; it is
// used for remote listings and remote directory creation.
func (c *Client) Sftp() (*sftp.Client, error) {
	if c.client == nil {
		return nil, apperr.Newf(apperr.ConnectionError, "not connected")
	}
	if c.sftpClient != nil {
		return c.sftpClient, nil
	}
	sftpClient, err := sftp.NewClient(c.client)
	if err != nil {
		return nil, apperr.New(apperr.ConnectionError, "failed to open SFTP subsystem", err)
	}
	c.sftpClient = sftpClient
	return c.sftpClient, nil
}

// GlobRemote expands glob patterns on the remote host over SFTP,
// filtering out directories.
func (c *Client) GlobRemote(patterns []string) ([]string, error) {
	client, err := c.Sftp()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, pattern := range patterns {
		matches, err := client.Glob(utils.ToRemotePath(pattern))
		if err != nil {
			return nil, apperr.New(apperr.ConnectionError,
				fmt.Sprintf("failed to list remote files for %s", pattern), err)
		}
		for _, match := range matches {
			info, err := client.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			files = append(files, match)
		}
	}
	return files, nil
}

// Close releases the SFTP subsystem and the connection. Safe to call on
// every exit path.
func (c *Client) Close() error {
	var firstErr error
	if c.sftpClient != nil {
		if err := c.sftpClient.Close(); err != nil {
			firstErr = err
		}
		c.sftpClient = nil
	}
	if c.client != nil {
		if err := c.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.client = nil
	}
	return firstErr
}
