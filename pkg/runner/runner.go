// Package runner spawns the external calibration tools.
//
// Every call blocks until the child exits. Children are started hidden so
// that no console window flashes on Windows.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrSpawn is returned when the child process could not be started at all.
// A child that starts and exits non-zero is not an error.
var ErrSpawn = errors.New("failed to spawn process")

// Command is an executable path plus its arguments.
type Command struct {
	Path string
	Args []string
}

// String renders the command the way it would be typed in a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quote(c.Path))
	for _, a := range c.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Runner runs external commands synchronously.
type Runner interface {
	// Run starts the command without capturing output and returns its exit code.
	Run(c Command) (int, error)
	// RunCapturing returns the exit code and the combined stdout/stderr text.
	RunCapturing(c Command) (int, string, error)
}

// Exec runs commands on the local host via os/exec.
type Exec struct{}

var _ Runner = Exec{}

func (Exec) Run(c Command) (int, error) {
	cmd := exec.Command(c.Path, c.Args...)
	hideWindow(cmd)

	logrus.WithField("command", c.String()).Trace("running command")

	return exitStatus(c, cmd.Run())
}

func (Exec) RunCapturing(c Command) (int, string, error) {
	cmd := exec.Command(c.Path, c.Args...)
	hideWindow(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logrus.WithField("command", c.String()).Trace("running command with output capture")

	code, err := exitStatus(c, cmd.Run())
	text := Decode(out.Bytes())

	logrus.WithFields(logrus.Fields{
		"command":  c.String(),
		"exitCode": code,
		"output":   strings.TrimSpace(text),
	}).Trace("command finished")

	return code, text, err
}

func exitStatus(c Command, err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	logrus.WithError(err).WithField("command", c.String()).Debug("failed to execute command")
	return -1, fmt.Errorf("%w: %s: %v", ErrSpawn, c.Path, err)
}
