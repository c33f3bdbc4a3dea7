// Package profile loads color profiles and calibration curves into the
// video card through a dispwin-compatible tool.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/runner"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// ErrLoadFailed is returned when the loader exits non-zero or cannot start.
var ErrLoadFailed = errors.New("profile loader failed")

// Loader runs `<tool> -d <display> [-I] <file>`.
type Loader struct {
	path   string
	runner runner.Runner
}

// NewLoader returns a Loader for the tool at path.
func NewLoader(path string, r runner.Runner) *Loader {
	return &Loader{path: path, runner: r}
}

// Install reports whether file should be installed as a system profile
// (.icc and .icm) rather than only loaded (.cal).
func Install(file string) bool {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".icc", ".icm":
		return true
	}
	return false
}

// Command returns the command line Load would run.
func (l *Loader) Command(d vcp.Display, file string) runner.Command {
	args := []string{"-d", strconv.Itoa(int(d))}
	if Install(file) {
		args = append(args, "-I")
	}
	args = append(args, file)
	return runner.Command{Path: l.path, Args: args}
}

// Load loads file onto display d.
func (l *Loader) Load(d vcp.Display, file string) error {
	c := l.Command(d, file)

	logrus.WithFields(logrus.Fields{
		"display": d,
		"file":    file,
		"install": Install(file),
	}).Debug("loading color profile")

	code, err := l.runner.Run(c)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if code != 0 {
		return fmt.Errorf("%w: %s exited with %d", ErrLoadFailed, filepath.Base(l.path), code)
	}
	return nil
}
