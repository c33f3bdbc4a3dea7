package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// Prober waits for a display's DDC/CI channel to answer. Displays often
// accept video well before their control channel enumerates.
type Prober struct {
	regs  vcp.Registers
	clock Clock
	log   logrus.FieldLogger
}

// NewProber returns a Prober.
func NewProber(regs vcp.Registers, clock Clock) *Prober {
	if clock == nil {
		clock = RealClock
	}
	return &Prober{regs: regs, clock: clock, log: logrus.StandardLogger()}
}

func (p *Prober) withLogger(l logrus.FieldLogger) *Prober {
	c := *p
	c.log = l
	return &c
}

// WaitUntilReadable reads r every poll until any value comes back or the
// timeout has elapsed.
func (p *Prober) WaitUntilReadable(d vcp.Display, r vcp.Register, timeout, poll time.Duration) bool {
	log := p.log.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"timeout":  timeout,
	})

	start := p.clock.Now()
	for polls := 1; ; polls++ {
		if _, err := p.regs.Get(d, r); err == nil {
			log.WithField("polls", polls).Debug("display readable")
			return true
		}
		if p.clock.Now().Sub(start) >= timeout {
			log.WithField("polls", polls).Warn("display did not become readable")
			return false
		}
		p.clock.Sleep(poll)
	}
}
