//go:build !windows && !darwin

package gui

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// Run logs that there is no tray on this platform.
func Run(_ string) {
	logrus.Errorf("the tray icon is not supported on %s, use the command line instead", runtime.GOOS)
}
