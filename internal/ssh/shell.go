// internal/ssh/shell.go
//go:build !windows
// +build !windows

package ssh

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"loon/internal/apperr"
)

// Shell is an interactive login shell on the active host with a PTY,
// local raw mode, window resize propagation and a keepalive loop.
type Shell struct {
	client     *ssh.Client
	session    *ssh.Session
	termWidth  int
	termHeight int
	keepAlive  time.Duration
	stopChan   chan struct{}
	sizeMutex  sync.Mutex
}

// NewShell opens a channel for an interactive shell on the client's
// current connection.
func NewShell(c *Client) (*Shell, error) {
	if c.client == nil {
		return nil, apperr.Newf(apperr.ConnectionError, "not connected")
	}
	session, err := c.client.NewSession()
	if err != nil {
		return nil, apperr.New(apperr.ConnectionError, "failed to open channel", err)
	}

	fd := int(os.Stdout.Fd())
	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24
	}

	return &Shell{
		client:     c.client,
		session:    session,
		termWidth:  width,
		termHeight: height,
		keepAlive:  30 * time.Second,
		stopChan:   make(chan struct{}),
	}, nil
}

func (s *Shell) requestPty(termType string) error {
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
		ssh.VINTR:         3,  // Ctrl+C
		ssh.VQUIT:         28, // Ctrl+\
		ssh.VERASE:        127,
		ssh.VKILL:         21, // Ctrl+U
		ssh.VEOF:          4,  // Ctrl+D
		ssh.VWERASE:       23, // Ctrl+W
		ssh.VLNEXT:        22, // Ctrl+V
		ssh.VSUSP:         26, // Ctrl+Z
	}

	if err := s.session.RequestPty(termType, s.termHeight, s.termWidth, modes); err != nil {
		return fmt.Errorf("failed to request PTY: %v", err)
	}
	return nil
}

// Run starts the shell and blocks until the remote side ends it. The
// local terminal is always restored, also on error paths.
func (s *Shell) Run(termType string) error {
	if termType == "" {
		termType = "xterm-256color"
	}
	if err := s.requestPty(termType); err != nil {
		return err
	}

	s.session.Stdin = os.Stdin
	s.session.Stdout = os.Stdout
	s.session.Stderr = os.Stderr

	go s.handleSignals()

	if s.keepAlive > 0 {
		go s.keepAliveLoop()
	}

	rawState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to set raw terminal: %v", err)
	}

	defer func(raw *term.State) {
		if err := term.Restore(int(os.Stdin.Fd()), raw); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore terminal state: %v\n", err)
		}
	}(rawState)

	if err := s.session.Shell(); err != nil {
		return fmt.Errorf("failed to start shell: %v", err)
	}

	if err := s.session.Wait(); err != nil {
		// Normal ways of leaving a shell are not errors.
		errStr := err.Error()
		if !strings.Contains(errStr, "exit status") &&
			!strings.Contains(errStr, "signal: terminated") &&
			!strings.Contains(errStr, "signal: interrupt") {
			return fmt.Errorf("session ended with error: %v", err)
		}
	}

	return nil
}

func (s *Shell) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGWINCH:
				// A failed resize keeps the old geometry; the next
				// SIGWINCH retries.
				s.updateTerminalSize()
			case syscall.SIGTERM, syscall.SIGINT:
				s.Close()
				return
			}
		case <-s.stopChan:
			return
		}
	}
}

func (s *Shell) updateTerminalSize() error {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return fmt.Errorf("failed to get terminal size: %v", err)
	}

	s.sizeMutex.Lock()
	defer s.sizeMutex.Unlock()

	if width == s.termWidth && height == s.termHeight {
		return nil
	}

	if err := s.session.WindowChange(height, width); err != nil {
		return fmt.Errorf("failed to update window size: %v", err)
	}

	s.termWidth = width
	s.termHeight = height

	return nil
}

func (s *Shell) keepAliveLoop() {
	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				s.Close()
				return
			}
		case <-s.stopChan:
			return
		}
	}
}

// Close shuts down the shell channel. The underlying client connection
// stays up and is closed by its owner. Closing twice is safe.
func (s *Shell) Close() error {
	select {
	case <-s.stopChan:
		// already closed
	default:
		close(s.stopChan)
	}

	var err error
	if s.session != nil {
		err = s.session.Close()
		s.session = nil
	}
	return err
}
