package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// idleWait is how long the loop sleeps when nothing is scheduled. Any
// schedule change wakes it early.
const idleWait = time.Hour * 10000

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task on a cron schedule. Runs that are still in progress
// when the next one is due are not overlapped; the due run is dropped.
type Scheduler struct {
	OnError  func(err error) // called on precheck or task error
	Task     TaskFunc
	PreCheck TaskFunc // a failing precheck skips that run

	parser cron.Parser

	mu       sync.Mutex
	spec     string
	schedule cron.Schedule
	nextRun  time.Time
	running  bool
	busy     bool

	recalcCh chan struct{}
	stopCh   chan struct{}
}

func NewScheduler(task, preCheck TaskFunc, onError func(error)) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		OnError:  onError,
		Task:     task,
		PreCheck: preCheck,
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		recalcCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Schedule replaces the schedule. An empty expression clears it.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = s.parser.Parse(cronExpr)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cronExpr, err)
		}
	}

	s.mu.Lock()
	s.spec = cronExpr
	s.schedule = sh
	s.nextRun = time.Time{}
	if sh != nil {
		s.nextRun = sh.Next(time.Now())
	}
	s.mu.Unlock()

	select {
	case s.recalcCh <- struct{}{}:
	default:
	}
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.loop()
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

// Status returns the schedule expression and the next run. nextRun is zero
// when nothing is scheduled.
func (s *Scheduler) Status() (spec string, nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec, s.nextRun, s.running
}

func (s *Scheduler) loop() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		s.mu.Lock()
		wait := idleWait
		if s.schedule != nil && !s.nextRun.IsZero() {
			wait = max(time.Until(s.nextRun), 0)
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.recalcCh:
			timer.Stop()
		case <-timer.C:
			s.fire()
		}
	}
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.schedule == nil {
		s.mu.Unlock()
		return
	}
	due := s.nextRun
	s.nextRun = s.schedule.Next(time.Now())
	if s.busy {
		s.mu.Unlock()
		logrus.WithField("due", due.Format(time.DateTime)).Debug("previous scheduled run still in progress, skipping")
		return
	}
	s.busy = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
		}()

		logrus.WithField("due", due.Format(time.DateTime)).Debug("running scheduled task")

		if s.PreCheck != nil {
			if err := s.PreCheck(); err != nil {
				s.sendError(fmt.Errorf("precheck failed: %w", err))
				return
			}
		}
		if err := s.Task(); err != nil {
			s.sendError(fmt.Errorf("task failed: %w", err))
		}
	}()
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}
	s.OnError(err)
}
