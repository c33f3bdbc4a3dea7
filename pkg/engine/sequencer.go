package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// Availability reports whether the external tools are present.
type Availability interface {
	Available() bool
}

// ProfileLoader loads a color profile onto a display.
type ProfileLoader interface {
	Load(d vcp.Display, file string) error
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Sequencer) {
		s.clock = c
	}
}

// WithTiming replaces DefaultTiming.
func WithTiming(t Timing) Option {
	return func(s *Sequencer) {
		s.timing = t
	}
}

// WithFileCheck replaces the check that a profile file exists.
func WithFileCheck(exists func(path string) bool) Option {
	return func(s *Sequencer) {
		s.exists = exists
	}
}

// WithFields adds fields to every log line of the Sequencer.
func WithFields(fields logrus.Fields) Option {
	return func(s *Sequencer) {
		f := logrus.Fields{}
		for k, v := range fields {
			f[k] = v
		}
		s.log = s.log.WithFields(f)
	}
}

// Sequencer runs the SDR and HDR calibration sequences.
type Sequencer struct {
	regs   vcp.Registers
	loader ProfileLoader
	tools  Availability

	clock  Clock
	timing Timing
	exists func(path string) bool
	log    logrus.FieldLogger
}

// NewSequencer returns a Sequencer. loader may be nil when profiles are
// never loaded.
func NewSequencer(regs vcp.Registers, loader ProfileLoader, tools Availability, opts ...Option) *Sequencer {
	s := &Sequencer{
		regs:   regs,
		loader: loader,
		tools:  tools,
		clock:  RealClock,
		timing: DefaultTiming(),
		exists: fileExists,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = RealClock
	}
	return s
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func (s *Sequencer) writer(snap calibration.Snapshot, log logrus.FieldLogger) *Writer {
	return NewWriter(s.regs, snap.Retry, s.timing.Settle, s.clock).withLogger(log)
}

func (s *Sequencer) prober(log logrus.FieldLogger) *Prober {
	return NewProber(s.regs, s.clock).withLogger(log)
}

func (s *Sequencer) stabilizer(log logrus.FieldLogger) *Stabilizer {
	return NewStabilizer(s.regs, s.clock).withLogger(log)
}

// precheck returns (skip, err). skip is true when color management is off.
func (s *Sequencer) precheck(snap calibration.Snapshot, log logrus.FieldLogger) (bool, error) {
	if !snap.ColorManagement {
		log.Info("color management disabled, nothing to do")
		return true, nil
	}
	if s.tools == nil || !s.tools.Available() {
		log.Warn("calibration tools not available")
		return true, ErrToolsUnavailable
	}
	return false, nil
}

// ApplySDR runs the SDR apply sequence.
func (s *Sequencer) ApplySDR(snap calibration.Snapshot) error {
	return s.apply(snap, calibration.ModeSDR)
}

// ApplyHDR runs the HDR apply sequence. Unlike ApplySDR it does not ensure
// the color preset first; PrepareHDR does that when enabled.
func (s *Sequencer) ApplyHDR(snap calibration.Snapshot) error {
	return s.apply(snap, calibration.ModeHDR)
}

func (s *Sequencer) apply(snap calibration.Snapshot, mode calibration.Mode) error {
	log := s.log.WithFields(logrus.Fields{
		"display": snap.Display,
		"mode":    mode,
	})

	if skip, err := s.precheck(snap, log); skip {
		return err
	}

	p := snap.Profile(mode)
	log.Info("applying calibration")

	s.clock.Sleep(s.timing.PreDelay)

	s.loadProfile(snap, p, log)
	if mode == calibration.ModeHDR {
		s.clock.Sleep(s.timing.HDRProfileSettle)
	}

	if mode == calibration.ModeSDR {
		if err := s.ensureColorMode(snap, p.ColorPreset, log); err != nil {
			log.WithError(err).Error("color preset not ensured, calibration aborted")
			return err
		}
	}

	var errs []error
	for _, t := range p.Targets() {
		if err := s.regs.Set(snap.Display, t.Register, t.Value); err != nil {
			log.WithFields(logrus.Fields{
				"register": t.Register,
				"value":    t.Value,
			}).WithError(err).Warn("register write failed")
			errs = append(errs, fmt.Errorf("%w: %s=%d: %v", ErrWriteFailed, t.Register, t.Value, err))
		}
		if mode == calibration.ModeHDR && t.Register == vcp.Brightness {
			s.clock.Sleep(s.timing.HDRBrightnessSettle)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info("calibration applied")
	return nil
}

func (s *Sequencer) loadProfile(snap calibration.Snapshot, p calibration.Profile, log logrus.FieldLogger) {
	if !p.ProfileEnabled || p.ProfileFile == "" {
		log.Debug("no color profile configured")
		return
	}
	path := snap.ProfilePath(p.ProfileFile)
	log = log.WithField("profile", path)
	if !s.exists(path) {
		log.Warn("color profile not found, skipping")
		return
	}
	if s.loader == nil {
		log.Warn("no profile loader, skipping")
		return
	}
	if err := s.loader.Load(snap.Display, path); err != nil {
		log.WithError(err).Warn("failed to load color profile")
		return
	}
	log.Info("color profile loaded")
}

// ReapplySDR restores the SDR settings after the display came back.
func (s *Sequencer) ReapplySDR(snap calibration.Snapshot, force bool, reason calibration.ReapplyReason) error {
	return s.reapply(snap, calibration.ModeSDR, force, reason)
}

// ReapplyHDR restores the HDR settings after the display came back.
func (s *Sequencer) ReapplyHDR(snap calibration.Snapshot, force bool, reason calibration.ReapplyReason) error {
	return s.reapply(snap, calibration.ModeHDR, force, reason)
}

func (s *Sequencer) reapply(snap calibration.Snapshot, mode calibration.Mode, force bool, reason calibration.ReapplyReason) error {
	log := s.log.WithFields(logrus.Fields{
		"display": snap.Display,
		"mode":    mode,
		"force":   force,
		"reason":  reason,
	})

	if skip, err := s.precheck(snap, log); skip {
		return err
	}

	log.Info("reapplying calibration")

	t := s.timing
	if !s.prober(log).WaitUntilReadable(snap.Display, vcp.Brightness, t.ReapplyReadyTimeout, t.ReadyPoll) {
		return fmt.Errorf("%w: %s", ErrNotReady, vcp.Brightness)
	}

	p := snap.Profile(mode)
	if !force && s.matches(snap.Display, p, log) {
		log.Info("display already calibrated")
		return nil
	}

	if mode == calibration.ModeSDR {
		if err := s.ensureColorMode(snap, p.ColorPreset, log); err != nil {
			log.WithError(err).Error("color preset not ensured, reapply aborted")
			return err
		}
	}

	w := s.writer(snap, log)
	var errs []error
	for _, target := range p.Targets() {
		if err := w.SetVerified(snap.Display, target.Register, target.Value); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Info("calibration reapplied")
	return nil
}

// matches reports whether every target register is readable and holds its
// configured value.
func (s *Sequencer) matches(d vcp.Display, p calibration.Profile, log logrus.FieldLogger) bool {
	for _, t := range p.Targets() {
		v, err := s.regs.Get(d, t.Register)
		if err != nil {
			log.WithField("register", t.Register).WithError(err).Debug("register unreadable during check")
			return false
		}
		if v != t.Value {
			log.WithFields(logrus.Fields{
				"register": t.Register,
				"read":     v,
				"want":     t.Value,
			}).Debug("register differs")
			return false
		}
	}
	return true
}

// PrepareHDR switches the monitor to the HDR color preset ahead of an HDR
// apply. It does nothing unless the snapshot allows preset changes.
func (s *Sequencer) PrepareHDR(snap calibration.Snapshot) error {
	log := s.log.WithFields(logrus.Fields{
		"display": snap.Display,
		"mode":    calibration.ModeHDR,
	})

	if skip, err := s.precheck(snap, log); skip {
		return err
	}
	if !snap.ColorPresetChange {
		log.Debug("color preset change disabled")
		return nil
	}

	s.clock.Sleep(s.timing.PreDelay)

	preset := snap.HDR.ColorPreset
	if err := s.regs.Set(snap.Display, vcp.ColorPreset, preset); err != nil {
		log.WithError(err).Warn("failed to set HDR color preset")
		return fmt.Errorf("%w: %s=%d: %v", ErrWriteFailed, vcp.ColorPreset, preset, err)
	}
	log.WithField("preset", preset).Info("HDR color preset set")
	return nil
}

// EnsureColorMode makes the color preset register settle on target.
func (s *Sequencer) EnsureColorMode(snap calibration.Snapshot, target vcp.Value) error {
	return s.ensureColorMode(snap, target, s.log.WithField("display", snap.Display))
}

func (s *Sequencer) ensureColorMode(snap calibration.Snapshot, target vcp.Value, log logrus.FieldLogger) error {
	d := snap.Display
	t := s.timing
	log = log.WithField("preset", target)

	probe := s.prober(log)
	if !probe.WaitUntilReadable(d, vcp.ColorPreset, t.ColorModeReadyTimeout, t.ReadyPoll) {
		return fmt.Errorf("%w: %s", ErrNotReady, vcp.ColorPreset)
	}

	if v, err := s.regs.Get(d, vcp.ColorPreset); err == nil && v == target {
		log.Debug("color preset already set")
		return nil
	}

	if err := s.writer(snap, log).SetVerified(d, vcp.ColorPreset, target); err != nil {
		return err
	}

	if !probe.WaitUntilReadable(d, vcp.ColorPreset, t.ColorModeReadyTimeout, t.ReadyPoll) {
		return fmt.Errorf("%w: %s after preset change", ErrNotReady, vcp.ColorPreset)
	}

	if !s.stabilizer(log).WaitStable(d, vcp.ColorPreset, target, t.StabilizeWindow, t.StabilizeInterval, t.StabilizeRequired) {
		return fmt.Errorf("%w: %s=%d", ErrNotStable, vcp.ColorPreset, target)
	}

	log.Info("color preset ensured")
	return nil
}
