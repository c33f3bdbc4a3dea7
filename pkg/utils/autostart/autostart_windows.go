package autostart

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows/registry"
)

// Enable writes e to the current user's Run key, replacing an older value.
func Enable(e Entry) error {
	exePath, err := executable()
	if err != nil {
		return err
	}

	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open HKCU\\%s: %w", runKeyPath, err)
	}
	defer k.Close()

	cmdline := e.CommandLine(exePath)
	logrus.WithFields(logrus.Fields{
		"name":    e.Name,
		"command": cmdline,
	}).Info("registering autostart entry")

	if err := k.SetStringValue(e.Name, cmdline); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.Name, err)
	}
	return nil
}

// Disable removes the value name from the Run key. A missing value is not
// an error.
func Disable(name string) error {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open HKCU\\%s: %w", runKeyPath, err)
	}
	defer k.Close()

	logrus.WithField("name", name).Info("removing autostart entry")

	if err := k.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Lookup returns the command registered under name, if any.
func Lookup(name string) (string, bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to open HKCU\\%s: %w", runKeyPath, err)
	}
	defer k.Close()

	v, _, err := k.GetStringValue(name)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return v, true, nil
}
