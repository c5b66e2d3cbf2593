package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"
)

// ShellConfig holds the connection parameters for the scripting host.
// Authentication material is supplied by the caller; the engine performs no
// credential prompting or key management of its own.
type ShellConfig struct {
	Addr     string // host:port
	Username string
	Password string
}

// DialShell connects to the scripting host, allocates a PTY and starts an
// interactive shell, returning it as a Transport. The menu the host presents
// on login is consumed through the usual prompt waits.
func DialShell(config ShellConfig) (Transport, error) {
	clientConfig := &ssh.ClientConfig{
		User: config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(config.Password),
		},
		// The scripting hosts sit on a closed management network and rotate
		// host keys on rebuild; pinning them breaks every rebuild.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	client, err := ssh.Dial("tcp", config.Addr, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", config.Addr, err)
	}

	sess, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	if err = sess.RequestPty("vt100", 80, 200, ssh.TerminalModes{}); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("requesting PTY: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("opening stdin pipe: %w", err)
	}

	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("opening stdout pipe: %w", err)
	}

	if err = sess.Shell(); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}

	t := &shellTransport{
		client: client,
		sess:   sess,
		stdin:  stdin,
	}
	go t.pump(stdout)

	return t, nil
}

// shellTransport adapts an SSH shell to the Transport interface. A pump
// goroutine drains stdout into an internal buffer so DataAvailable and
// Receive never block the caller's poll loop.
type shellTransport struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser

	mu      sync.Mutex
	pending bytes.Buffer
	readErr error

	closeOnce sync.Once
	closeErr  error
}

func (t *shellTransport) pump(stdout io.Reader) {
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		t.mu.Lock()
		if n > 0 {
			t.pending.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.readErr = err
			}
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

func (t *shellTransport) Send(text string) error {
	if _, err := io.WriteString(t.stdin, text); err != nil {
		return fmt.Errorf("writing to channel: %w", err)
	}
	return nil
}

func (t *shellTransport) DataAvailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.Len() > 0
}

func (t *shellTransport) Receive(max int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending.Len() == 0 {
		return nil, t.readErr
	}

	n := min(max, t.pending.Len())
	chunk := make([]byte, n)
	_, _ = t.pending.Read(chunk)
	return chunk, nil
}

func (t *shellTransport) Close() error {
	t.closeOnce.Do(func() {
		sessErr := t.sess.Close()
		clientErr := t.client.Close()

		switch {
		case sessErr != nil && clientErr != nil:
			t.closeErr = errors.Join(sessErr, clientErr)
		case sessErr != nil:
			t.closeErr = sessErr
		case clientErr != nil:
			t.closeErr = clientErr
		}
	})

	return t.closeErr
}
