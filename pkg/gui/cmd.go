// Package gui is a tray icon that drives the hdrcal daemon.
package gui

import (
	"github.com/spf13/cobra"
)

func NewGUICommand(unixSocketPath string, groupID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Start the hdrcal tray icon",
		GroupID: groupID,
		Long: `Start the hdrcal tray icon.

The tray holds no calibration state of its own. Every action is sent to the
hdrcal daemon, which must be running.`,
		Run: func(_ *cobra.Command, _ []string) {
			Run(unixSocketPath)
		},
	}

	return cmd
}
