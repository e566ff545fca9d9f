// Package solver delivers queries to an SMT-LIB prover, either by running
// it as a subprocess or by posting to a solver server.
package solver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/theorem"
)

const (
	DefaultCommand    = "z3"
	DefaultConstraint = ">= 4.8.0"
)

// TransportError reports a query that never produced a solver response.
type TransportError struct {
	Via string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("solver %s: %v", e.Via, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

var (
	_ theorem.Transport = (*Process)(nil)
	_ theorem.Transport = (*HTTP)(nil)
)

// Process runs one solver process per query, writing the query to its
// standard input.
type Process struct {
	Command string
	Args    []string
	Logger  *zap.Logger
}

// NewProcess returns a transport running command in SMT-LIB 2 mode.
func NewProcess(command string, logger *zap.Logger) *Process {
	if command == "" {
		command = DefaultCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Process{Command: command, Args: []string{"-in", "-smt2"}, Logger: logger}
}

func (p *Process) Submit(ctx context.Context, query string) (string, error) {
	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = strings.NewReader(query)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", &TransportError{Via: p.Command, Err: ctxErr}
	}
	// z3 exits non-zero when the query contains an error but still prints
	// the response, which the decoder reports in more detail
	if err != nil && stdout.Len() == 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &TransportError{Via: p.Command, Err: err}
	}
	if err != nil {
		p.Logger.Debug("solver exited with an error", zap.String("command", p.Command), zap.Error(err))
	}
	return stdout.String(), nil
}

// HTTP posts the query text to a solver server. The response body is the
// raw solver output.
type HTTP struct {
	URL    string
	Client *http.Client
}

func NewHTTP(url string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{URL: url, Client: client}
}

func (h *HTTP) Submit(ctx context.Context, query string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, strings.NewReader(query))
	if err != nil {
		return "", &TransportError{Via: h.URL, Err: err}
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", &TransportError{Via: h.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Via: h.URL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{Via: h.URL, Err: fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(body)))}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.HasPrefix(mediaType, "text/") {
			return "", &TransportError{Via: h.URL, Err: fmt.Errorf("unexpected content type %q", ct)}
		}
	}
	return string(body), nil
}

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// ErrVersion is returned when the installed solver is too old.
var ErrVersion = errors.New("unsupported solver version")

// CheckVersion runs `command --version` and checks the reported version
// against a semver constraint such as ">= 4.8.0".
func CheckVersion(ctx context.Context, command, constraint string) (*semver.Version, error) {
	if command == "" {
		command = DefaultCommand
	}
	if constraint == "" {
		constraint = DefaultConstraint
	}
	out, err := exec.CommandContext(ctx, command, "--version").Output()
	if err != nil {
		return nil, &TransportError{Via: command, Err: err}
	}
	return MatchVersion(string(out), constraint)
}

// MatchVersion extracts the first version number of a --version banner,
// for example "Z3 version 4.12.2 - 64 bit", and checks it against
// constraint.
func MatchVersion(banner, constraint string) (*semver.Version, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("bad version constraint %q: %w", constraint, err)
	}
	found := versionPattern.FindString(banner)
	if found == "" {
		return nil, fmt.Errorf("no version in %q", strings.TrimSpace(banner))
	}
	v, err := semver.NewVersion(found)
	if err != nil {
		return nil, fmt.Errorf("bad version %q: %w", found, err)
	}
	if !c.Check(v) {
		return v, fmt.Errorf("%w: %s does not satisfy %s", ErrVersion, v, constraint)
	}
	return v, nil
}
