// Package autostart registers hdrcal to start at user logon.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned on platforms without a logon Run key.
var ErrUnsupported = errors.New("autostart is only supported on Windows")

// runKeyPath is relative to HKEY_CURRENT_USER.
const runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// Entry is one program started at logon.
type Entry struct {
	// Name is the registry value name.
	Name string
	Args []string
}

// CommandLine returns the command stored for e when run from exe. The
// executable is always quoted; arguments only when they contain spaces.
func (e Entry) CommandLine(exe string) string {
	parts := []string{`"` + exe + `"`}
	for _, a := range e.Args {
		if a == "" || strings.ContainsAny(a, " \t") {
			a = `"` + a + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func executable() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return "", fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}
	return exePath, nil
}
