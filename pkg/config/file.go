package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/utils/ptr"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// FileName is the name of the config file next to the executable.
const FileName = "hdrcal.json"

// maxRegisterValue is the largest value a VCP register can hold.
const maxRegisterValue = 0xFFFF

var (
	defaultFileConfig = &RawFileConfig{
		DisplayID:         ptr.To(1),
		ColorManagement:   ptr.To(true),
		ColorPresetChange: ptr.To(false),
		ProfileDir:        ptr.To("profiles"),
		ToolDir:           ptr.To("bin"),
		SDR: &RawProfile{
			Brightness:     ptr.To(50),
			RedGain:        ptr.To(50),
			GreenGain:      ptr.To(49),
			BlueGain:       ptr.To(49),
			ColorPreset:    ptr.To(12),
			Profile:        ptr.To(""),
			ProfileEnabled: ptr.To(true),
		},
		HDR: &RawProfile{
			Brightness:     ptr.To(100),
			RedGain:        ptr.To(46),
			GreenGain:      ptr.To(49),
			BlueGain:       ptr.To(49),
			ColorPreset:    ptr.To(12),
			Profile:        ptr.To(""),
			ProfileEnabled: ptr.To(true),
		},
		Retry: &RawRetry{
			MaxAttempts:               ptr.To(3),
			BackoffMs:                 []int{150, 300, 500},
			AssumeSuccessOnUnreadable: ptr.To(true),
		},
		ReapplyCron: ptr.To(""),
		Mode:        ptr.To(string(calibration.ModeSDR)),
	}
)

// DefaultPath returns hdrcal.json next to the running executable, or in the
// working directory when the executable cannot be located.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return FileName
	}
	return filepath.Join(filepath.Dir(exe), FileName)
}

var _ Config = &File{}

type File struct {
	c        *RawFileConfig
	mu       *sync.RWMutex
	filepath string
}

func NewFile(configPath string) (*File, error) {
	f := &File{
		filepath: configPath,
		mu:       &sync.RWMutex{},
	}
	err := f.Load()
	if err != nil {
		return nil, err
	}

	return f, nil
}

func NewFileFromConfig(c *RawFileConfig, configPath string) *File {
	if c == nil {
		c = &RawFileConfig{}
	}

	f := &File{
		c:        c,
		mu:       &sync.RWMutex{},
		filepath: configPath,
	}

	return f
}

// RawProfile is the on-disk form of calibration.Profile.
type RawProfile struct {
	Brightness     *int    `json:"brightness,omitempty"`
	RedGain        *int    `json:"redGain,omitempty"`
	GreenGain      *int    `json:"greenGain,omitempty"`
	BlueGain       *int    `json:"blueGain,omitempty"`
	ColorPreset    *int    `json:"colorPreset,omitempty"`
	Profile        *string `json:"profile,omitempty"`
	ProfileEnabled *bool   `json:"profileEnabled,omitempty"`
}

// RawRetry is the on-disk form of calibration.RetryPolicy.
type RawRetry struct {
	MaxAttempts               *int  `json:"maxAttempts,omitempty"`
	BackoffMs                 []int `json:"backoffMs,omitempty"`
	AssumeSuccessOnUnreadable *bool `json:"assumeSuccessOnUnreadable,omitempty"`
}

type RawFileConfig struct {
	DisplayID         *int        `json:"displayId,omitempty"`
	ColorManagement   *bool       `json:"colorManagement,omitempty"`
	ColorPresetChange *bool       `json:"colorPresetChange,omitempty"`
	ProfileDir        *string     `json:"profileDir,omitempty"`
	ToolDir           *string     `json:"toolDir,omitempty"`
	SDR               *RawProfile `json:"sdr,omitempty"`
	HDR               *RawProfile `json:"hdr,omitempty"`
	Retry             *RawRetry   `json:"retry,omitempty"`
	ReapplyCron       *string     `json:"reapplyCron,omitempty"`
	Mode              *string     `json:"mode,omitempty"`
}

func (f *File) raw() *RawFileConfig {
	if f.c == nil {
		panic("config is nil")
	}
	return f.c
}

func (f *File) DisplayID() vcp.Display {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.displayID()
}

func (f *File) ColorManagement() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.colorManagement()
}

func (f *File) ColorPresetChange() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.colorPresetChange()
}

func (f *File) ProfileDir() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.profileDir()
}

func (f *File) ToolDir() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.resolve(ptr.Deref(f.raw().ToolDir, *defaultFileConfig.ToolDir))
}

func (f *File) Profile(m calibration.Mode) calibration.Profile {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.profile(m)
}

func (f *File) Retry() calibration.RetryPolicy {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.retry()
}

func (f *File) ReapplyCron() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return ptr.Deref(f.raw().ReapplyCron, *defaultFileConfig.ReapplyCron)
}

func (f *File) Mode() calibration.Mode {
	f.mu.RLock()
	defer f.mu.RUnlock()

	m, err := calibration.ParseMode(ptr.Deref(f.raw().Mode, *defaultFileConfig.Mode))
	if err != nil {
		return calibration.ModeSDR
	}
	return m
}

// The lowercase getters expect f.mu to be held.

func (f *File) displayID() vcp.Display {
	return vcp.Display(ptr.Deref(f.raw().DisplayID, *defaultFileConfig.DisplayID))
}

func (f *File) colorManagement() bool {
	return ptr.Deref(f.raw().ColorManagement, *defaultFileConfig.ColorManagement)
}

func (f *File) colorPresetChange() bool {
	return ptr.Deref(f.raw().ColorPresetChange, *defaultFileConfig.ColorPresetChange)
}

func (f *File) profileDir() string {
	return f.resolve(ptr.Deref(f.raw().ProfileDir, *defaultFileConfig.ProfileDir))
}

// resolve makes dir relative to the config file's directory.
func (f *File) resolve(dir string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(filepath.Dir(f.filepath), dir)
}

func (f *File) profile(m calibration.Mode) calibration.Profile {
	raw, def := f.raw().SDR, defaultFileConfig.SDR
	if m == calibration.ModeHDR {
		raw, def = f.raw().HDR, defaultFileConfig.HDR
	}
	if raw == nil {
		raw = &RawProfile{}
	}

	return calibration.Profile{
		Brightness:     vcp.Value(ptr.Deref(raw.Brightness, *def.Brightness)),
		RedGain:        vcp.Value(ptr.Deref(raw.RedGain, *def.RedGain)),
		GreenGain:      vcp.Value(ptr.Deref(raw.GreenGain, *def.GreenGain)),
		BlueGain:       vcp.Value(ptr.Deref(raw.BlueGain, *def.BlueGain)),
		ColorPreset:    vcp.Value(ptr.Deref(raw.ColorPreset, *def.ColorPreset)),
		ProfileFile:    ptr.Deref(raw.Profile, *def.Profile),
		ProfileEnabled: ptr.Deref(raw.ProfileEnabled, *def.ProfileEnabled),
	}
}

func (f *File) retry() calibration.RetryPolicy {
	raw, def := f.raw().Retry, defaultFileConfig.Retry
	if raw == nil {
		raw = &RawRetry{}
	}

	backoffMs := raw.BackoffMs
	if len(backoffMs) == 0 {
		backoffMs = def.BackoffMs
	}
	backoff := make([]time.Duration, 0, len(backoffMs))
	for _, ms := range backoffMs {
		backoff = append(backoff, time.Duration(ms)*time.Millisecond)
	}

	maxAttempts := ptr.Deref(raw.MaxAttempts, *def.MaxAttempts)
	if maxAttempts < 1 {
		maxAttempts = *def.MaxAttempts
	}

	return calibration.RetryPolicy{
		MaxAttempts:               maxAttempts,
		Backoff:                   backoff,
		AssumeSuccessOnUnreadable: ptr.Deref(raw.AssumeSuccessOnUnreadable, *def.AssumeSuccessOnUnreadable),
	}
}

func (f *File) SetDisplayID(d vcp.Display) {
	if d < 0 {
		panic("display id must not be negative")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().DisplayID = ptr.To(int(d))
}

func (f *File) SetColorManagement(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().ColorManagement = &b
}

func (f *File) SetColorPresetChange(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().ColorPresetChange = &b
}

func (f *File) SetMode(m calibration.Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw().Mode = ptr.To(string(m))
}

// Snapshot reads every field under one lock, so a concurrent Load never
// leaves it half old and half new.
func (f *File) Snapshot() calibration.Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return calibration.Snapshot{
		Display:           f.displayID(),
		SDR:               f.profile(calibration.ModeSDR),
		HDR:               f.profile(calibration.ModeHDR),
		ProfileDir:        f.profileDir(),
		ColorManagement:   f.colorManagement(),
		ColorPresetChange: f.colorPresetChange(),
		Retry:             f.retry(),
	}
}

// Path returns the file the config is loaded from.
func (f *File) Path() string {
	return f.filepath
}

func (f *File) Load() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fp, err := os.Open(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			// A file that disappears after it was loaded is most likely
			// being moved or replaced. Keep what we have.
			if f.c != nil {
				logrus.WithField("path", f.filepath).Warn("config file is gone, keeping the loaded config")
				return nil
			}
			// If the file does not exist, return the empty config.
			// Do not make f.c a nil.
			f.c = &RawFileConfig{}
			return nil
		}
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	b, err := io.ReadAll(fp)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to read file %s", f.filepath)
	}

	if strings.TrimSpace(string(b)) == "" {
		f.c = &RawFileConfig{}
		return nil
	}

	conf := RawFileConfig{}
	err = json.Unmarshal(b, &conf)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to unmarshal config from file %s", f.filepath)
	}
	if err := conf.validate(); err != nil {
		return pkgerrors.Wrapf(err, "invalid config in %s", f.filepath)
	}
	f.c = &conf

	return nil
}

func (f *File) Save() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.c == nil {
		return pkgerrors.New("config is nil")
	}

	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.filepath)
	}

	fp, err := os.OpenFile(f.filepath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open file %s", f.filepath)
	}
	defer func(fp *os.File) {
		err := fp.Close()
		if err != nil {
			logrus.Warnf("failed to close file %s", f.filepath)
		}
	}(fp)

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(f.c)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to encode config to file %s", f.filepath)
	}

	return nil
}

func (f *File) LogrusFields() logrus.Fields {
	retry := f.Retry()
	return logrus.Fields{
		"displayId":         f.DisplayID(),
		"colorManagement":   f.ColorManagement(),
		"colorPresetChange": f.ColorPresetChange(),
		"profileDir":        f.ProfileDir(),
		"toolDir":           f.ToolDir(),
		"mode":              f.Mode(),
		"reapplyCron":       f.ReapplyCron(),
		"maxAttempts":       retry.MaxAttempts,
		"assumeSuccess":     retry.AssumeSuccessOnUnreadable,
	}
}

func checkRegisterValue(name string, v *int) error {
	if v != nil && (*v < 0 || *v > maxRegisterValue) {
		return fmt.Errorf("%s must be between 0 and %d, got %d", name, maxRegisterValue, *v)
	}
	return nil
}

func (p *RawProfile) validate(mode string) error {
	if p == nil {
		return nil
	}
	for _, field := range []struct {
		name string
		v    *int
	}{
		{"brightness", p.Brightness},
		{"redGain", p.RedGain},
		{"greenGain", p.GreenGain},
		{"blueGain", p.BlueGain},
		{"colorPreset", p.ColorPreset},
	} {
		if err := checkRegisterValue(mode+"."+field.name, field.v); err != nil {
			return err
		}
	}
	return nil
}

// validate rejects values that could never be written to a display.
func (c *RawFileConfig) validate() error {
	if c.DisplayID != nil && *c.DisplayID < 0 {
		return fmt.Errorf("displayId must not be negative, got %d", *c.DisplayID)
	}
	if err := c.SDR.validate("sdr"); err != nil {
		return err
	}
	if err := c.HDR.validate("hdr"); err != nil {
		return err
	}
	if r := c.Retry; r != nil {
		if r.MaxAttempts != nil && *r.MaxAttempts < 0 {
			return fmt.Errorf("retry.maxAttempts must not be negative, got %d", *r.MaxAttempts)
		}
		for i, ms := range r.BackoffMs {
			if ms < 0 {
				return fmt.Errorf("retry.backoffMs[%d] must not be negative, got %d", i, ms)
			}
		}
	}
	if c.Mode != nil {
		if _, err := calibration.ParseMode(*c.Mode); err != nil {
			return err
		}
	}
	return nil
}
