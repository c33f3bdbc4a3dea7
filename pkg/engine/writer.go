// Package engine makes DDC/CI writes deterministic: it waits for the
// channel to come up, writes and reads back with bounded retries, and
// watches registers that bounce before they settle. On top of that it runs
// the SDR and HDR calibration sequences.
//
// Everything blocks the caller. Nothing here is safe to run twice at once
// against the same display; hosts serialize runs.
package engine

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/vcp"
)

// writeState names the steps of a verified write, for logs.
type writeState string

const (
	stateSetting      writeState = "Setting"
	stateSettling     writeState = "Settling"
	stateVerifying    writeState = "Verifying"
	stateRetryBackoff writeState = "RetryBackoff"
	stateDone         writeState = "Done"
)

// Writer performs verified writes.
type Writer struct {
	regs   vcp.Registers
	policy calibration.RetryPolicy
	settle time.Duration
	clock  Clock
	log    logrus.FieldLogger
}

// NewWriter returns a Writer. A policy with MaxAttempts < 1 is replaced by
// calibration.DefaultRetryPolicy.
func NewWriter(regs vcp.Registers, policy calibration.RetryPolicy, settle time.Duration, clock Clock) *Writer {
	if policy.MaxAttempts < 1 {
		policy = calibration.DefaultRetryPolicy()
	}
	if clock == nil {
		clock = RealClock
	}
	return &Writer{
		regs:   regs,
		policy: policy,
		settle: settle,
		clock:  clock,
		log:    logrus.StandardLogger(),
	}
}

func (w *Writer) withLogger(l logrus.FieldLogger) *Writer {
	c := *w
	c.log = l
	return &c
}

// SetVerified writes v to r and reads it back until it matches or the
// attempts run out.
//
// A read-back that is unreadable on the last attempt counts as success when
// the policy says so, because many tools cannot report some registers.
func (w *Writer) SetVerified(d vcp.Display, r vcp.Register, v vcp.Value) error {
	last := w.policy.MaxAttempts - 1

	var lastErr error
	for attempt := 0; attempt <= last; attempt++ {
		log := w.log.WithFields(logrus.Fields{
			"display":  d,
			"register": r,
			"value":    v,
			"attempt":  attempt + 1,
		})

		log.WithField("state", stateSetting).Trace("verified write")
		if err := w.regs.Set(d, r, v); err != nil {
			lastErr = fmt.Errorf("%w: %s=%d: %v", ErrWriteFailed, r, v, err)
			log.WithError(err).Debug("write rejected")
			if attempt == last {
				break
			}
			w.backoff(log, attempt)
			continue
		}

		log.WithField("state", stateSettling).Trace("verified write")
		w.clock.Sleep(w.settle)

		log.WithField("state", stateVerifying).Trace("verified write")
		got, err := w.regs.Get(d, r)
		switch {
		case err == nil && got == v:
			log.WithField("state", stateDone).Debug("write verified")
			return nil
		case err == nil:
			lastErr = fmt.Errorf("%w: %s wrote %d, read %d", ErrVerificationMismatch, r, v, got)
			log.WithField("readBack", got).Debug("read-back mismatch")
		default:
			if attempt == last && w.policy.AssumeSuccessOnUnreadable {
				log.WithError(err).Warn("register not readable after last attempt, assuming write succeeded")
				return nil
			}
			lastErr = fmt.Errorf("%w: %s: %v", ErrUnverified, r, err)
			log.WithError(err).Debug("read-back unreadable")
		}

		if attempt == last {
			break
		}
		w.backoff(log, attempt)
	}

	w.log.WithFields(logrus.Fields{
		"display":  d,
		"register": r,
		"value":    v,
		"attempts": w.policy.MaxAttempts,
	}).WithError(lastErr).Warn("verified write failed")

	return lastErr
}

func (w *Writer) backoff(log logrus.FieldLogger, attempt int) {
	d := w.policy.BackoffFor(attempt)
	log.WithFields(logrus.Fields{
		"state": stateRetryBackoff,
		"delay": d,
	}).Trace("verified write")
	w.clock.Sleep(d)
}
