package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdrtray/hdrcal/pkg/daemon"
	"github.com/hdrtray/hdrcal/pkg/version"
)

var (
	// mockDisplay replaces the monitor with an in-memory one.
	mockDisplay = false
	bundleDir   = ""
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daemon",
		Short:   "Run hdrcal daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("hdrcal daemon starting")
			return daemon.Run(daemon.Options{
				ConfigPath: configPath,
				SocketPath: unixSocketPath,
				Mock:       mockDisplay,
				BundleDir:  bundleDir,
			})
		},
	}

	f := cmd.Flags()

	f.BoolVar(&mockDisplay, "mock", false,
		"Use an in-memory display instead of the DDC/CI tools.")
	f.StringVar(&bundleDir, "bundle", "",
		"Directory holding copies of dispwin and winddcutil to unpack when they are not installed.")

	return cmd
}
