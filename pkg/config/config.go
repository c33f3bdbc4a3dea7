package config

import (
	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

type Config interface {
	DisplayID() vcp.Display
	ColorManagement() bool
	ColorPresetChange() bool
	// ProfileDir and ToolDir are absolute, resolved against the directory
	// of the config file when configured relative.
	ProfileDir() string
	ToolDir() string
	Profile(m calibration.Mode) calibration.Profile
	Retry() calibration.RetryPolicy
	// ReapplyCron is a cron spec for periodic reapply. Empty disables it.
	ReapplyCron() string
	// Mode is the mode applied last.
	Mode() calibration.Mode

	SetDisplayID(vcp.Display)
	SetColorManagement(bool)
	SetColorPresetChange(bool)
	SetMode(calibration.Mode)

	// Snapshot returns an immutable copy of everything a sequence run needs.
	Snapshot() calibration.Snapshot

	// Load reads the configuration from the source.
	Load() error
	// Save saves the configuration to the source.
	Save() error
}
