// Package session drives an interactive text shell on a network element
// scripting host. There is no structured RPC on the far side: commands are
// written as free-form text and completion is detected by matching one of a
// small set of known prompt patterns in the accumulated output.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// PromptKind names one of the prompts the scripting host presents.
type PromptKind string

const (
	PromptMenu PromptKind = "menu" // host main menu selection prompt
	PromptNeid PromptKind = "neid" // network element id prompt
	PromptBash PromptKind = "bash" // scripting shell prompt
)

var promptPatterns = map[PromptKind]*regexp.Regexp{
	PromptMenu: regexp.MustCompile(`Please Enter Selection: >`),
	PromptNeid: regexp.MustCompile(`Please enter NEID Number: >`),
	PromptBash: regexp.MustCompile(`:~\$`),
}

var (
	// ErrNotConnected is returned when no transport is bound to the session.
	ErrNotConnected = errors.New("no active channel")

	// ErrEmptyLog is returned by FetchLog when the capture is empty once the
	// command echo and the trailing prompt line are stripped. Callers treat
	// it as "nothing to parse" rather than a hard failure.
	ErrEmptyLog = errors.New("log capture is empty")
)

// PromptTimeoutError reports that an expected prompt was not observed within
// the wait window. Buffer carries the full output accumulated during the wait
// for diagnostics.
type PromptTimeoutError struct {
	Kind    PromptKind
	Elapsed time.Duration
	Buffer  string
}

func (e *PromptTimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s prompt after %s", e.Kind, e.Elapsed)
}

// Transport is the channel collaborator the session writes to and reads from.
// Receive must not block: it returns whatever is currently available, up to
// max bytes. Implementations are provided by DialShell or by test doubles.
type Transport interface {
	Send(text string) error
	DataAvailable() bool
	Receive(max int) ([]byte, error)
	Close() error
}

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultSettleDelay  = 500 * time.Millisecond
	defaultGraceWindow  = 5 * time.Second
	receiveChunkSize    = 65535
)

// WithLogger sets the diagnostics logger for the session.
func WithLogger(logger *slog.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithPollInterval overrides the wait loop poll interval.
func WithPollInterval(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.pollInterval = d
	}
}

// WithSettleDelay overrides the delay applied after a prompt match so
// trailing buffered output can flush before the next command is sent.
func WithSettleDelay(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.settleDelay = d
	}
}

// WithGraceWindow overrides the no-new-data window after which the buffer is
// re-tested against the prompt pattern.
func WithGraceWindow(d time.Duration) func(*Session) {
	return func(s *Session) {
		s.graceWindow = d
	}
}

// Session owns one transport channel for the duration of one analysis run.
// It is not safe for concurrent use: callers must not Send while a
// WaitForPrompt is in flight, because interleaved responses corrupt prompt
// detection.
type Session struct {
	transport Transport
	logger    *slog.Logger

	pollInterval time.Duration
	settleDelay  time.Duration
	graceWindow  time.Duration

	output strings.Builder
}

// New creates a Session over the given transport. A nil transport is allowed;
// operations then fail with ErrNotConnected.
func New(transport Transport, options ...func(*Session)) *Session {
	s := Session{
		transport:    transport,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pollInterval: defaultPollInterval,
		settleDelay:  defaultSettleDelay,
		graceWindow:  defaultGraceWindow,
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Send writes text verbatim to the channel. The caller must not call Send
// again before a prior WaitForPrompt has returned.
func (s *Session) Send(text string) error {
	if s.transport == nil {
		return ErrNotConnected
	}
	return s.transport.Send(text)
}

// Buffer returns the output accumulated by the most recent wait.
func (s *Session) Buffer() string {
	return s.output.String()
}

// WaitForPrompt accumulates channel output until the pattern registered for
// kind appears, the timeout elapses, or ctx is cancelled. On timeout the
// returned error is a *PromptTimeoutError carrying the accumulated buffer.
func (s *Session) WaitForPrompt(ctx context.Context, kind PromptKind, timeout time.Duration) error {
	if s.transport == nil {
		return ErrNotConnected
	}
	pattern, ok := promptPatterns[kind]
	if !ok {
		return fmt.Errorf("unknown prompt kind %q", kind)
	}

	s.logger.Debug("waiting for prompt", slog.String("kind", string(kind)))
	s.output.Reset()

	start := time.Now()
	lastData := start

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for %s prompt: %w", kind, err)
		}
		if elapsed := time.Since(start); elapsed > timeout {
			s.logger.Debug("prompt wait timed out",
				slog.String("kind", string(kind)), slog.Int("buffered", s.output.Len()))
			return &PromptTimeoutError{Kind: kind, Elapsed: elapsed, Buffer: s.output.String()}
		}

		if s.transport.DataAvailable() {
			chunk, err := s.transport.Receive(receiveChunkSize)
			if err != nil {
				return fmt.Errorf("receiving channel data: %w", err)
			}
			if len(chunk) > 0 {
				s.output.Write(chunk)
				lastData = time.Now()

				if pattern.MatchString(s.output.String()) {
					s.logger.Debug("prompt found", slog.String("kind", string(kind)))
					s.settle(ctx)
					return nil
				}
			}
		}

		if !sleep(ctx, s.pollInterval) {
			return fmt.Errorf("waiting for %s prompt: %w", kind, ctx.Err())
		}

		// The match condition may have been satisfied by a chunk whose loop
		// iteration was skipped; re-test once output has gone quiet.
		if time.Since(lastData) > s.graceWindow && pattern.MatchString(s.output.String()) {
			s.logger.Debug("prompt found after grace window", slog.String("kind", string(kind)))
			return nil
		}
	}
}

// settle lets trailing buffered output flush after a prompt match and folds
// it into the session buffer.
func (s *Session) settle(ctx context.Context) {
	if !sleep(ctx, s.settleDelay) {
		return
	}
	for s.transport.DataAvailable() {
		chunk, err := s.transport.Receive(receiveChunkSize)
		if err != nil || len(chunk) == 0 {
			return
		}
		s.output.Write(chunk)
	}
}

// Login walks the scripting host's selection flow: menu prompt, element
// manager selection, NEID entry, shell prompt.
func (s *Session) Login(ctx context.Context, neid int, timeout time.Duration) error {
	if err := s.WaitForPrompt(ctx, PromptMenu, timeout); err != nil {
		return err
	}
	if err := s.Send("5"); err != nil {
		return err
	}
	if err := s.WaitForPrompt(ctx, PromptNeid, timeout); err != nil {
		return err
	}
	if err := s.Send(fmt.Sprintf("%d\n", neid)); err != nil {
		return err
	}
	if err := s.WaitForPrompt(ctx, PromptBash, timeout); err != nil {
		return err
	}
	s.logger.Info("session established", slog.Int("neid", neid))
	return nil
}

// Run sends a command line and accumulates output until the shell prompt
// returns. The full output, including the command echo, is returned.
func (s *Session) Run(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if err := s.Send(command + "\n"); err != nil {
		return "", err
	}
	if err := s.WaitForPrompt(ctx, PromptBash, timeout); err != nil {
		return "", err
	}
	return s.output.String(), nil
}

// FetchLog reads a remote capture file and returns its cleaned content: the
// first line (command echo) and the last line (trailing shell prompt) are
// stripped. Returns ErrEmptyLog when nothing remains after stripping.
func (s *Session) FetchLog(ctx context.Context, path string, timeout time.Duration) (string, error) {
	if s.transport == nil {
		return "", ErrNotConnected
	}

	s.logger.Debug("fetching log capture", slog.String("path", path))
	output, err := s.Run(ctx, "cat "+path, timeout)
	if err != nil {
		return "", err
	}

	lines := strings.Split(output, "\n")
	if len(lines) <= 2 {
		return "", ErrEmptyLog
	}
	content := strings.Join(lines[1:len(lines)-1], "\n")
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyLog
	}
	return content, nil
}

var userPromptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\w+)@[\w-]+:~\$`),
	// Hosts with a site tag in the prompt: user@scp-1-scripting:SITE1:~$
	regexp.MustCompile(`(\w+)@[\w-]+:[\w-]+:~\$`),
}

// RemoteUser presses enter and extracts the login name from the shell prompt.
// The capture directory on the scripting host is keyed by this name.
func (s *Session) RemoteUser(ctx context.Context, timeout time.Duration) (string, error) {
	output, err := s.Run(ctx, "", timeout)
	if err != nil {
		return "", err
	}
	for _, pattern := range userPromptPatterns {
		if m := pattern.FindStringSubmatch(output); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("could not detect username from prompt")
}

// EnsureLogDir creates dir on the remote host unless it already exists.
func (s *Session) EnsureLogDir(ctx context.Context, dir string, timeout time.Duration) error {
	probe := fmt.Sprintf(`test -d %s && echo "EXISTS_YEP" || echo "NOT_EXISTS"`, dir)
	output, err := s.Run(ctx, probe, timeout)
	if err != nil {
		return err
	}
	if strings.Contains(output, "EXISTS_YEP") {
		return nil
	}

	s.logger.Debug("creating remote log directory", slog.String("dir", dir))
	if _, err = s.Run(ctx, "mkdir -p "+dir, timeout); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying transport.
func (s *Session) Close() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Close()
}

// sleep waits for d or until ctx is done; it reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
