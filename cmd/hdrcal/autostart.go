package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdrtray/hdrcal/pkg/utils/autostart"
)

func autostartEntries(withGUI bool) []autostart.Entry {
	entries := []autostart.Entry{
		{Name: "hdrcal", Args: []string{"daemon", "--config", configPath, "--daemon-socket", unixSocketPath}},
	}
	if withGUI {
		entries = append(entries, autostart.Entry{
			Name: "hdrcal-gui",
			Args: []string{"gui", "--daemon-socket", unixSocketPath},
		})
	}
	return entries
}

func NewAutostartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "autostart",
		Short:   "Start hdrcal at logon",
		GroupID: gInstallation,
		Long: `Start hdrcal at logon.

Registers the daemon, and optionally the tray icon, under the current user's
Run key. No administrator rights are needed.`,
	}

	var withGUI bool

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Register hdrcal to start at logon",
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, e := range autostartEntries(withGUI) {
				if err := autostart.Enable(e); err != nil {
					return err
				}
			}
			logrus.Info("autostart enabled")
			return nil
		},
	}
	enable.Flags().BoolVar(&withGUI, "gui", true, "also start the tray icon")

	cmd.AddCommand(
		enable,
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting hdrcal at logon",
			RunE: func(_ *cobra.Command, _ []string) error {
				for _, e := range autostartEntries(true) {
					if err := autostart.Disable(e.Name); err != nil {
						return err
					}
				}
				logrus.Info("autostart disabled")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the registered autostart entries",
			RunE: func(cmd *cobra.Command, _ []string) error {
				for _, e := range autostartEntries(true) {
					v, ok, err := autostart.Lookup(e.Name)
					if err != nil {
						return err
					}
					if !ok {
						cmd.Printf("  %s: %s\n", e.Name, bool2Text(false))
						continue
					}
					cmd.Printf("  %s: %s %s\n", e.Name, bool2Text(true), v)
				}
				return nil
			},
		},
	)

	return cmd
}
