package daemon

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestCronParse(t *testing.T) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse("@every 10m")
	if err != nil {
		t.Fatalf("failed to parse cron expression: %v", err)
	}

	next1 := schedule.Next(time.Now())
	next2 := schedule.Next(next1)
	if !next2.After(next1) {
		t.Fatalf("expected next2 to be after next1, got next1=%v next2=%v", next1, next2)
	}
}

func TestSchedulerScheduleStatus(t *testing.T) {
	s := NewScheduler(func() error { return nil }, nil, nil)

	if err := s.Schedule("@every 1m"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}

	spec, next, running := s.Status()
	if running {
		t.Fatalf("scheduler should not be running")
	}
	if spec != "@every 1m" || next.IsZero() {
		t.Fatalf("unexpected status: spec=%q next=%v", spec, next)
	}

	if err := s.Schedule(""); err != nil {
		t.Fatalf("clearing schedule returned error: %v", err)
	}
	if _, next, _ := s.Status(); !next.IsZero() {
		t.Fatalf("next run should be cleared, got %v", next)
	}

	if err := s.Schedule("every tuesday-ish"); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}

func TestSchedulerRunsTask(t *testing.T) {
	taskCh := make(chan struct{}, 4)
	var preChecks int32

	s := NewScheduler(func() error {
		taskCh <- struct{}{}
		return nil
	}, func() error {
		atomic.AddInt32(&preChecks, 1)
		return nil
	}, nil)

	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-taskCh:
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not run")
	}
	if atomic.LoadInt32(&preChecks) < 1 {
		t.Fatalf("precheck was not called")
	}
}

func TestSchedulerPreCheckFailureSkipsTask(t *testing.T) {
	errCh := make(chan error, 4)
	var tasks int32

	s := NewScheduler(func() error {
		atomic.AddInt32(&tasks, 1)
		return nil
	}, func() error {
		return errors.New("tools missing")
	}, func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})

	if err := s.Schedule("@every 1s"); err != nil {
		t.Fatalf("Schedule returned error: %v", err)
	}
	s.Start()
	defer s.Stop()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no precheck error reported")
	}
	if atomic.LoadInt32(&tasks) != 0 {
		t.Fatalf("task ran despite failing precheck")
	}
}
