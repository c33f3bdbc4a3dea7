package calibration

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// Mode is the display's dynamic-range mode.
type Mode string

const (
	ModeSDR Mode = "sdr"
	ModeHDR Mode = "hdr"
)

// ParseMode accepts "sdr" or "hdr".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSDR, ModeHDR:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q, expected sdr or hdr", s)
}

// ReapplyReason tags why a reapply ran. It never changes behavior.
type ReapplyReason string

const (
	ReasonDisplayChange  ReapplyReason = "display-change"
	ReasonDisplayPowerOn ReapplyReason = "display-power-on"
	ReasonSystemResume   ReapplyReason = "system-resume"
	ReasonManual         ReapplyReason = "manual"
	ReasonScheduled      ReapplyReason = "scheduled"
)

// ParseReapplyReason accepts one of the known reasons. An empty string is
// ReasonManual.
func ParseReapplyReason(s string) (ReapplyReason, error) {
	switch r := ReapplyReason(s); r {
	case "":
		return ReasonManual, nil
	case ReasonDisplayChange, ReasonDisplayPowerOn, ReasonSystemResume, ReasonManual, ReasonScheduled:
		return r, nil
	}
	return "", fmt.Errorf("unknown reapply reason %q", s)
}

// Target is one register write of a profile.
type Target struct {
	Register vcp.Register
	Value    vcp.Value
}

// Profile holds the desired settings for one mode.
type Profile struct {
	Brightness  vcp.Value `json:"brightness"`
	RedGain     vcp.Value `json:"redGain"`
	GreenGain   vcp.Value `json:"greenGain"`
	BlueGain    vcp.Value `json:"blueGain"`
	ColorPreset vcp.Value `json:"colorPreset"`

	// ProfileFile is an ICC/ICM profile or a .cal file, relative to the
	// snapshot's ProfileDir unless absolute.
	ProfileFile    string `json:"profile"`
	ProfileEnabled bool   `json:"profileEnabled"`
}

// Targets returns the register writes in the order they must be issued:
// brightness, then red, green and blue gain.
func (p Profile) Targets() []Target {
	return []Target{
		{Register: vcp.Brightness, Value: p.Brightness},
		{Register: vcp.RedGain, Value: p.RedGain},
		{Register: vcp.GreenGain, Value: p.GreenGain},
		{Register: vcp.BlueGain, Value: p.BlueGain},
	}
}

// RetryPolicy controls verified writes.
type RetryPolicy struct {
	MaxAttempts int `json:"maxAttempts"`
	// Backoff[i] is slept after failed attempt i; the last entry is reused
	// once the list runs out.
	Backoff []time.Duration `json:"backoff"`
	// AssumeSuccessOnUnreadable accepts a write whose read-back is still
	// unreadable after the last attempt.
	AssumeSuccessOnUnreadable bool `json:"assumeSuccessOnUnreadable"`
}

// DefaultRetryPolicy is three attempts with 150/300/500ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:               3,
		Backoff:                   []time.Duration{150 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond},
		AssumeSuccessOnUnreadable: true,
	}
}

// BackoffFor returns the delay after the given zero-based attempt.
func (p RetryPolicy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt >= len(p.Backoff) {
		attempt = len(p.Backoff) - 1
	}
	if attempt < 0 {
		attempt = 0
	}
	return p.Backoff[attempt]
}

// Snapshot is the configuration one sequence run works from. It is passed
// by value and never changes during the run.
type Snapshot struct {
	Display vcp.Display `json:"display"`
	SDR     Profile     `json:"sdr"`
	HDR     Profile     `json:"hdr"`

	ProfileDir string `json:"profileDir"`

	// ColorManagement is the master switch. When false every sequence is a
	// no-op.
	ColorManagement bool `json:"colorManagement"`
	// ColorPresetChange allows PrepareHDR to switch the monitor preset.
	ColorPresetChange bool `json:"colorPresetChange"`

	Retry RetryPolicy `json:"retry"`
}

// Profile returns the profile for m.
func (s Snapshot) Profile(m Mode) Profile {
	if m == ModeHDR {
		return s.HDR
	}
	return s.SDR
}

// ProfilePath resolves a profile file name against ProfileDir.
func (s Snapshot) ProfilePath(name string) string {
	if name == "" || filepath.IsAbs(name) || s.ProfileDir == "" {
		return name
	}
	return filepath.Join(s.ProfileDir, name)
}

// Kind tells an apply from a reapply.
type Kind string

const (
	KindApply      Kind = "apply"
	KindReapply    Kind = "reapply"
	KindPrepareHDR Kind = "prepare-hdr"
)

// Result describes one finished run.
type Result struct {
	RunID     string        `json:"runID"`
	Kind      Kind          `json:"kind"`
	Mode      Mode          `json:"mode"`
	Reason    ReapplyReason `json:"reason,omitempty"`
	Force     bool          `json:"force,omitempty"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}
