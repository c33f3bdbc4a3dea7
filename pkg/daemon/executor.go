package daemon

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/config"
	"github.com/hdrtray/hdrcal/pkg/engine"
	"github.com/hdrtray/hdrcal/pkg/events"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// executor runs sequences one at a time. The DDC/CI channel belongs to a
// single tool process at once, so register reads and writes from the API go
// through the same lock.
type executor struct {
	mu sync.Mutex

	conf   config.Config
	regs   vcp.Registers
	loader engine.ProfileLoader
	tools  engine.Availability
	hub    *events.EventHub
	opts   []engine.Option

	lastMu sync.RWMutex
	last   *calibration.Result
}

func newExecutor(conf config.Config, regs vcp.Registers, loader engine.ProfileLoader, tools engine.Availability, hub *events.EventHub, opts ...engine.Option) *executor {
	return &executor{
		conf:   conf,
		regs:   regs,
		loader: loader,
		tools:  tools,
		hub:    hub,
		opts:   opts,
	}
}

type sequenceFunc func(s *engine.Sequencer, snap calibration.Snapshot) error

func (e *executor) Apply(mode calibration.Mode) calibration.Result {
	res := e.run(calibration.Result{Kind: calibration.KindApply, Mode: mode}, func(s *engine.Sequencer, snap calibration.Snapshot) error {
		if mode == calibration.ModeHDR {
			return s.ApplyHDR(snap)
		}
		return s.ApplySDR(snap)
	})
	if res.OK {
		e.rememberMode(mode)
	}
	return res
}

func (e *executor) Reapply(mode calibration.Mode, force bool, reason calibration.ReapplyReason) calibration.Result {
	res := calibration.Result{Kind: calibration.KindReapply, Mode: mode, Force: force, Reason: reason}
	return e.run(res, func(s *engine.Sequencer, snap calibration.Snapshot) error {
		if mode == calibration.ModeHDR {
			return s.ReapplyHDR(snap, force, reason)
		}
		return s.ReapplySDR(snap, force, reason)
	})
}

func (e *executor) PrepareHDR() calibration.Result {
	return e.run(calibration.Result{Kind: calibration.KindPrepareHDR, Mode: calibration.ModeHDR}, func(s *engine.Sequencer, snap calibration.Snapshot) error {
		return s.PrepareHDR(snap)
	})
}

func (e *executor) run(res calibration.Result, fn sequenceFunc) calibration.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	res.RunID = uuid.NewString()
	res.StartedAt = time.Now()

	fields := logrus.Fields{
		"runID": res.RunID,
		"kind":  res.Kind,
	}
	log := logrus.WithFields(fields)
	log.WithField("mode", res.Mode).Info("run started")
	e.hub.Publish(events.RunStarted, res)

	snap := e.conf.Snapshot()
	opts := append(append([]engine.Option{}, e.opts...), engine.WithFields(fields))
	err := fn(engine.NewSequencer(e.regs, e.loader, e.tools, opts...), snap)

	res.Duration = time.Since(res.StartedAt)
	res.OK = err == nil
	if err != nil {
		res.Error = err.Error()
		log.WithError(err).WithField("duration", res.Duration).Error("run failed")
	} else {
		log.WithField("duration", res.Duration).Info("run finished")
	}

	e.lastMu.Lock()
	e.last = &res
	e.lastMu.Unlock()

	e.hub.Publish(events.RunFinished, res)
	return res
}

func (e *executor) rememberMode(mode calibration.Mode) {
	if e.conf.Mode() == mode {
		return
	}
	e.conf.SetMode(mode)
	if err := e.conf.Save(); err != nil {
		logrus.WithError(err).Warn("failed to save last applied mode")
	}
}

// Last returns the most recent run, or nil.
func (e *executor) Last() *calibration.Result {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	if e.last == nil {
		return nil
	}
	r := *e.last
	return &r
}

// GetRegister reads one register of the configured display.
func (e *executor) GetRegister(r vcp.Register) (vcp.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.regs.Get(e.conf.DisplayID(), r)
}

// SetRegister writes one register of the configured display, with
// read-back when verify is set.
func (e *executor) SetRegister(r vcp.Register, v vcp.Value, verify bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.conf.Snapshot()
	if !verify {
		return e.regs.Set(snap.Display, r, v)
	}
	return engine.NewWriter(e.regs, snap.Retry, engine.DefaultTiming().Settle, nil).SetVerified(snap.Display, r, v)
}
