// Package tools finds the external executables hdrcal drives, and can
// unpack them from a bundled filesystem when they are not installed.
package tools

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	ProfileLoaderName = "dispwin"
	VCPToolName       = "winddcutil"
)

// ExeName appends .exe on Windows.
func ExeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// Locator holds the resolved tool paths.
type Locator struct {
	ProfileLoader string `json:"profileLoader"`
	VCPTool       string `json:"vcpTool"`
}

// Locate looks for both tools in dir first and then on PATH. Paths that
// cannot be resolved are still set to their location under dir so that
// error messages point somewhere useful.
func Locate(dir string) *Locator {
	return &Locator{
		ProfileLoader: find(dir, ProfileLoaderName),
		VCPTool:       find(dir, VCPToolName),
	}
}

func find(dir, name string) string {
	p := filepath.Join(dir, ExeName(name))
	if fileExists(p) {
		return p
	}
	if lp, err := exec.LookPath(ExeName(name)); err == nil {
		return lp
	}
	return p
}

// Available reports whether both tools exist.
func (l *Locator) Available() bool {
	if l == nil {
		return false
	}
	return fileExists(l.ProfileLoader) && fileExists(l.VCPTool)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// Extract copies both tools from the root of bundle into dest and returns a
// Locator for them plus a cleanup func that removes what was written.
func Extract(bundle fs.FS, dest string) (*Locator, func(), error) {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	var written []string
	cleanup := func() {
		logrus.WithField("dir", dest).Debug("cleaning up extracted tools")
		for _, p := range written {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logrus.WithError(err).Warnf("failed to remove %s", p)
			}
		}
		// Only succeeds when empty.
		_ = os.Remove(dest)
	}

	l := &Locator{}
	for _, t := range []struct {
		name string
		dst  *string
	}{
		{ProfileLoaderName, &l.ProfileLoader},
		{VCPToolName, &l.VCPTool},
	} {
		out := filepath.Join(dest, ExeName(t.name))
		if err := copyOut(bundle, ExeName(t.name), out); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to extract %s: %w", t.name, err)
		}
		written = append(written, out)
		*t.dst = out
	}

	logrus.WithField("dir", dest).Info("extracted bundled tools")

	return l, cleanup, nil
}

func copyOut(bundle fs.FS, name, out string) error {
	src, err := bundle.Open(name)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("%s is empty", name)
	}
	if err != nil {
		_ = os.Remove(out)
	}
	return err
}
