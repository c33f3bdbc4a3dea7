package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// Stabilizer samples a register until it holds a value for several reads
// in a row. Some monitors accept a preset and then bounce through an
// intermediate value before settling, or revert it.
type Stabilizer struct {
	regs  vcp.Registers
	clock Clock
	log   logrus.FieldLogger
}

// NewStabilizer returns a Stabilizer.
func NewStabilizer(regs vcp.Registers, clock Clock) *Stabilizer {
	if clock == nil {
		clock = RealClock
	}
	return &Stabilizer{regs: regs, clock: clock, log: logrus.StandardLogger()}
}

func (s *Stabilizer) withLogger(l logrus.FieldLogger) *Stabilizer {
	c := *s
	c.log = l
	return &c
}

// WaitStable returns true once required consecutive reads equal target.
// A different or unreadable read resets the count. It gives up once window
// has elapsed.
func (s *Stabilizer) WaitStable(d vcp.Display, r vcp.Register, target vcp.Value, window, interval time.Duration, required int) bool {
	if required < 1 {
		required = 1
	}

	log := s.log.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"target":   target,
	})

	start := s.clock.Now()
	consecutive := 0
	for {
		v, err := s.regs.Get(d, r)
		switch {
		case err != nil:
			log.WithError(err).Trace("stabilization read failed")
			consecutive = 0
		case v != target:
			log.WithField("read", v).Trace("stabilization read differs")
			consecutive = 0
		default:
			consecutive++
			if consecutive >= required {
				log.WithField("elapsed", s.clock.Now().Sub(start)).Debug("register stable")
				return true
			}
		}

		if s.clock.Now().Sub(start) >= window {
			log.WithField("consecutive", consecutive).Warn("register did not stabilize")
			return false
		}
		s.clock.Sleep(interval)
	}
}
