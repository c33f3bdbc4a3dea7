package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/version"
)

func parseModeArg(args []string) (calibration.Mode, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("invalid number of arguments")
	}
	return calibration.ParseMode(strings.ToLower(args[0]))
}

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient.GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

// exeBase is the executable name without directory or extension.
func exeBase() string {
	base := filepath.Base(os.Args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// reportResult logs a finished run and turns a failed one into an error.
func reportResult(res *calibration.Result, what string) error {
	log := logrus.WithFields(logrus.Fields{
		"runID":    res.RunID,
		"duration": res.Duration,
	})
	if !res.OK {
		return fmt.Errorf("%s failed: %s", what, res.Error)
	}
	log.Infof("successfully finished %s", what)
	return nil
}
